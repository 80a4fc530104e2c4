package testutil

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// StubExtractor serves tag maps from memory. Write updates the stored tags
// and, when FS is set, changes the file bytes the way a real rewrite does.
// Safe for concurrent use.
type StubExtractor struct {
	FS *MockFilesystemManager

	mu       sync.Mutex
	tags     map[string]map[string]string
	failures map[string]error
	writeErr map[string]error
	extracts map[string]int
	writes   map[string][][]media.TagWrite
}

func NewStubExtractor(fs *MockFilesystemManager) *StubExtractor {
	return &StubExtractor{
		FS:       fs,
		tags:     make(map[string]map[string]string),
		failures: make(map[string]error),
		writeErr: make(map[string]error),
		extracts: make(map[string]int),
		writes:   make(map[string][][]media.TagWrite),
	}
}

// SetTags replaces the tags reported for path.
func (e *StubExtractor) SetTags(path string, tags map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tags[path] = maps.Clone(tags)
}

// Fail makes extraction of path return err. A nil err clears it.
func (e *StubExtractor) Fail(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, path)
		return
	}
	e.failures[path] = err
}

// FailWrite makes writes to path return err. A nil err clears it.
func (e *StubExtractor) FailWrite(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.writeErr, path)
		return
	}
	e.writeErr[path] = err
}

// Extracts returns how often path was extracted.
func (e *StubExtractor) Extracts(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extracts[path]
}

// Writes returns the writes made to path, one slice per call.
func (e *StubExtractor) Writes(path string) [][]media.TagWrite {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes[path]
}

func (e *StubExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extracts[path]++
	if err := e.failures[path]; err != nil {
		return nil, fmt.Errorf("%w: %s: %w", exifrec.ErrExtractionFailure, path, err)
	}
	tags, ok := e.tags[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no tags", exifrec.ErrExtractionFailure, path)
	}
	out := maps.Clone(tags)
	if _, ok := out["FileModifyDate"]; !ok && e.FS != nil {
		if info, err := e.FS.Stat(path); err == nil && !info.ModTime().IsZero() {
			out["FileModifyDate"] = info.ModTime().Format("2006:01:02 15:04:05-07:00")
		}
	}
	return out, nil
}

func (e *StubExtractor) Write(ctx context.Context, path string, writes []media.TagWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes[path] = append(e.writes[path], writes)
	if err := e.writeErr[path]; err != nil {
		return fmt.Errorf("%w: %s: %w", exifrec.ErrWriteBackFailure, path, err)
	}

	tags := maps.Clone(e.tags[path])
	if tags == nil {
		tags = make(map[string]string)
	}
	for _, w := range writes {
		tags[w.Tag] = w.Value
	}
	e.tags[path] = tags

	if e.FS != nil {
		content := e.FS.Content(path)
		stamp := fmt.Sprintf("\nrewritten %d", time.Now().UnixNano())
		if err := e.FS.SetContent(path, append(content, stamp...)); err != nil {
			return fmt.Errorf("%w: %s: %w", exifrec.ErrWriteBackFailure, path, err)
		}
	}
	return nil
}

func (e *StubExtractor) Close() error { return nil }

var _ exifrec.Extractor = (*StubExtractor)(nil)
