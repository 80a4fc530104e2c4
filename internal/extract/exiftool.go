// Package extract reads and writes embedded metadata through exiftool
// processes kept open in stay-open mode.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"

	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// DefaultTimeout bounds one extraction or write when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when exiftool does not answer within the timeout.
// The process is replaced; other files are unaffected.
var ErrTimeout = errors.New("exiftool timed out")

type Options struct {
	BinaryPath string        // empty means exiftool from PATH
	Timeout    time.Duration // per call
	Workers    int           // maximum number of exiftool processes
}

// tool is the part of *exiftool.Exiftool used here.
type tool interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
	WriteMetadata(files []exiftool.FileMetadata)
	Close() error
}

// Exiftool implements exifrec.Extractor with a pool of exiftool processes,
// started on demand. It is safe for concurrent use.
type Exiftool struct {
	timeout time.Duration
	start   func() (tool, error)

	idle  chan tool
	slots chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ exifrec.Extractor = (*Exiftool)(nil)

// New checks that exiftool can be started and returns the pool.
func New(opts Options) (*Exiftool, error) {
	var toolOpts []func(*exiftool.Exiftool) error
	if opts.BinaryPath != "" {
		toolOpts = append(toolOpts, exiftool.SetExiftoolBinaryPath(opts.BinaryPath))
	}
	toolOpts = append(toolOpts, exiftool.Charset("filename=utf8"))

	e := newWithStarter(opts, func() (tool, error) {
		return exiftool.NewExiftool(toolOpts...)
	})

	// Start the first process now so a missing binary fails early.
	t, err := e.acquire(context.Background())
	if err != nil {
		return nil, err
	}
	e.release(t)
	return e, nil
}

func newWithStarter(opts Options, start func() (tool, error)) *Exiftool {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exiftool{
		timeout: timeout,
		start:   start,
		idle:    make(chan tool, workers),
		slots:   make(chan struct{}, workers),
	}
}

// Extract returns every tag of path as text.
func (e *Exiftool) Extract(ctx context.Context, path string) (map[string]string, error) {
	var results []exiftool.FileMetadata
	err := e.run(ctx, func(t tool) {
		results = t.ExtractMetadata(path)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", exifrec.ErrExtractionFailure, path, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("%w: %s: exiftool returned %d results", exifrec.ErrExtractionFailure, path, len(results))
	}
	if results[0].Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", exifrec.ErrExtractionFailure, path, results[0].Err)
	}
	return flatten(results[0].Fields), nil
}

// Write sets exactly the tags in writes and replaces the file in place.
func (e *Exiftool) Write(ctx context.Context, path string, writes []media.TagWrite) error {
	if len(writes) == 0 {
		return nil
	}
	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	for _, w := range writes {
		fm.SetString(w.Tag, w.Value)
	}
	batch := []exiftool.FileMetadata{fm}

	err := e.run(ctx, func(t tool) {
		t.WriteMetadata(batch)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", exifrec.ErrWriteBackFailure, path, err)
	}
	if batch[0].Err != nil {
		return fmt.Errorf("%w: %s: %w", exifrec.ErrWriteBackFailure, path, batch[0].Err)
	}
	return nil
}

// Close stops the idle processes. Processes still in use are stopped when
// they are released.
func (e *Exiftool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for {
		select {
		case t := <-e.idle:
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

// run hands fn a process and waits for it within the timeout. A process
// that times out or is cancelled is abandoned and its slot freed.
func (e *Exiftool) run(ctx context.Context, fn func(tool)) error {
	t, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(t)
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case <-done:
		e.release(t)
		return nil
	case <-timer.C:
		e.discard(t, done)
		return fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		e.discard(t, done)
		return ctx.Err()
	}
}

func (e *Exiftool) acquire(ctx context.Context) (tool, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, errors.New("extractor is closed")
	}

	select {
	case t := <-e.idle:
		return t, nil
	default:
	}

	select {
	case t := <-e.idle:
		return t, nil
	case e.slots <- struct{}{}:
		t, err := e.start()
		if err != nil {
			<-e.slots
			return nil, fmt.Errorf("starting exiftool: %w", err)
		}
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Exiftool) release(t tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		t.Close()
		<-e.slots
		return
	}
	e.idle <- t
}

// discard frees the slot of t at once and closes t once the pending call
// returns. The stay-open protocol offers no way to interrupt a call.
func (e *Exiftool) discard(t tool, done <-chan struct{}) {
	<-e.slots
	go func() {
		<-done
		t.Close()
	}()
}

// flatten turns exiftool's JSON values into text. Lists are joined with
// ", " the way exiftool prints them.
func flatten(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = text(v)
	}
	return out
}

func text(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []interface{}:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = text(p)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + text(x[k])
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
