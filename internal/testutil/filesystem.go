package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/natural"

	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// used as given; callers pass absolute, cleaned paths. Safe for concurrent
// use.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file modified at modTime, creating its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     modTime,
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	m.files[path] = &MockFile{Permissions: 0755, IsDirectory: true}
}

func (m *MockFilesystemManager) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{Permissions: 0755, IsDirectory: true}
		}
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

// SetContent replaces the bytes of an existing file.
func (m *MockFilesystemManager) SetContent(path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[path]
	if !ok || file.IsDirectory {
		return fmt.Errorf("file not found: %s", path)
	}
	file.Content = content
	return nil
}

// Remove deletes a file.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Exists reports whether path is present.
func (m *MockFilesystemManager) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

// Content returns a copy of the bytes of path.
func (m *MockFilesystemManager) Content(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file, ok := m.files[path]; ok {
		return bytes.Clone(file.Content)
	}
	return nil
}

func (m *MockFilesystemManager) Resolve(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, err
	}
	info, err := m.Stat(absPath)
	if err != nil {
		return "", nil, err
	}
	return absPath, info, nil
}

// FindFiles lists the media files under root in natural order.
func (m *MockFilesystemManager) FindFiles(root string, recursive bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[root]
	if !ok {
		return nil, fmt.Errorf("stat %s: file not found", root)
	}
	if !file.IsDirectory {
		if _, ok := media.KindForPath(root); ok {
			return []string{root}, nil
		}
		return nil, nil
	}

	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	var out []string
	for p, f := range m.files {
		if f.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && filepath.Dir(p) != filepath.Clean(root) {
			continue
		}
		if strings.HasSuffix(p, exifrec.RestoredSuffix) {
			continue
		}
		if _, ok := media.KindForPath(p); ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natural.Less(a, b):
			return -1
		default:
			return 1
		}
	})
	return out, nil
}

func (m *MockFilesystemManager) Hash(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path)
	}
	if file.IsDirectory {
		return "", fmt.Errorf("cannot hash directory: %s", path)
	}
	return HashHex(file.Content), nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(file.Content))), nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ exifrec.FilesystemManager = (*MockFilesystemManager)(nil)
