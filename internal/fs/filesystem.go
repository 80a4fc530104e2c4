package fs

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/zeebo/blake3"

	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// IgnoreFileName is read from the root of every scan.
const IgnoreFileName = ".exifrecignore"

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	ignore     []string
	extensions map[string]bool
}

// NewOSFilesystemManager creates a filesystem manager for the real
// filesystem. ignore holds patterns applied on top of each root's
// .exifrecignore. A non-empty extensions list restricts discovery to those
// extensions; otherwise every extension with a known media kind is found.
func NewOSFilesystemManager(ignore, extensions []string) *OSFilesystemManager {
	m := &OSFilesystemManager{ignore: ignore}
	if len(extensions) > 0 {
		m.extensions = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			m.extensions[ext] = true
		}
	}
	return m
}

// Resolve validates a raw path and returns its absolute form.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return "", nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if !mode.IsDir() && !mode.IsRegular() {
		return "", nil, fmt.Errorf("not a regular file or directory: %s", absPath)
	}

	return absPath, info, nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Hash returns the hex BLAKE3 digest of the file contents.
func (m *OSFilesystemManager) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FindFiles discovers media files under root, in natural path order.
// A regular file root is returned as is when it is a media file.
func (m *OSFilesystemManager) FindFiles(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if m.accepts(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, m.ignore...), filePatterns...))

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel, false) || !m.accepts(p) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(paths, func(i, j int) bool { return natural.Less(paths[i], paths[j]) })
	return paths, nil
}

func (m *OSFilesystemManager) accepts(path string) bool {
	if _, ok := media.KindForPath(path); !ok {
		return false
	}
	if m.extensions == nil {
		return true
	}
	return m.extensions[strings.ToLower(filepath.Ext(path))]
}

var _ exifrec.FilesystemManager = (*OSFilesystemManager)(nil)
