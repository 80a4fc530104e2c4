package exifrec

import "io"

// Vault stores backups of original files and copies of the local database.
// All operations stream so large videos are never held in memory.
type Vault interface {
	// PutContent stores content under key. Storing the same key twice is safe.
	// size is the number of bytes that will be read from r.
	PutContent(key string, r io.Reader, size int64) error

	// GetContent retrieves content by key and writes it to w.
	GetContent(key string, w io.Writer) error

	// HasContent reports whether key is stored.
	HasContent(key string) (bool, error)

	// PutMetadata stores a named metadata item for a specific host.
	// version is stored alongside for consistency checks.
	// Known names: "db" (SQLite database), "public_key", "private_key".
	PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error

	// GetMetadata retrieves a named metadata item for a host and writes it to w.
	GetMetadata(hostID string, name string, w io.Writer) error

	// GetMetadataVersion returns the stored version, 0 when nothing is stored.
	GetMetadataVersion(hostID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup() error
}
