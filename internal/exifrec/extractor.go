package exifrec

import (
	"context"

	"exifrec-go/internal/media"
)

// Extractor reads and writes embedded metadata through an external tool.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Extract returns every tag of the file as a flat tag name to text map.
	// Failures wrap ErrExtractionFailure.
	Extract(ctx context.Context, path string) (map[string]string, error)

	// Write sets exactly the listed tags, replacing the file in place.
	// Failures wrap ErrWriteBackFailure.
	Write(ctx context.Context, path string, writes []media.TagWrite) error

	Close() error
}
