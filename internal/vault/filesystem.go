package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"exifrec-go/internal/exifrec"
)

// FileSystemVault keeps original backups and database copies in a directory,
// typically on a removable or network drive:
//
//	<root>/
//	  content/
//	    <key>              (original files, keyed by content hash)
//	  metadata/
//	    <hostID>/
//	      <name>           (database copy, keys)
//	      <name>.version
type FileSystemVault struct {
	name        string
	root        string
	contentDir  string
	metadataDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	metadataDir := filepath.Join(root, "metadata")

	// Create directory structure
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		contentDir:  contentDir,
		metadataDir: metadataDir,
	}, nil
}

// PutContent stores content under key. A key that is already stored is
// kept; the reader is still drained and its size checked.
func (v *FileSystemVault) PutContent(key string, r io.Reader, size int64) error {
	destPath, err := v.contentPath(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return v.writeFile(destPath, r, size)
}

// GetContent retrieves content by key and writes it to w.
func (v *FileSystemVault) GetContent(key string, w io.Writer) error {
	srcPath, err := v.contentPath(key)
	if err != nil {
		return err
	}
	return v.readFile(srcPath, w, fmt.Sprintf("content not found: %s", key))
}

// HasContent reports whether key is stored.
func (v *FileSystemVault) HasContent(key string) (bool, error) {
	p, err := v.contentPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat content: %w", err)
	}
	return true, nil
}

// PutMetadata stores a named item for a host along with a version marker.
func (v *FileSystemVault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	dir, err := v.hostDir(hostID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	if err := v.writeFile(filepath.Join(dir, name), r, size); err != nil {
		return err
	}

	versionPath := filepath.Join(dir, name+".version")
	return os.WriteFile(versionPath, []byte(strconv.FormatInt(version, 10)), 0644)
}

// GetMetadataVersion returns the version of a named item on a host, 0 when
// nothing is stored.
func (v *FileSystemVault) GetMetadataVersion(hostID string, name string) (int64, error) {
	dir, err := v.hostDir(hostID, name)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name+".version"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetMetadata retrieves a named item for a host and writes it to w.
func (v *FileSystemVault) GetMetadata(hostID string, name string, w io.Writer) error {
	dir, err := v.hostDir(hostID, name)
	if err != nil {
		return err
	}
	return v.readFile(filepath.Join(dir, name), w, fmt.Sprintf("metadata %q not found for host: %s", name, hostID))
}

func (v *FileSystemVault) contentPath(key string) (string, error) {
	if err := checkName(key); err != nil {
		return "", err
	}
	return filepath.Join(v.contentDir, key), nil
}

func (v *FileSystemVault) hostDir(hostID, name string) (string, error) {
	if err := checkName(hostID); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(v.metadataDir, hostID), nil
}

// checkName rejects keys that would escape their directory.
func checkName(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid vault key: %q", s)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.contentDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes r to a temp file next to destPath and renames it into
// place once the size checks out.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from the specified path and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer, notFoundMsg string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

var _ exifrec.Vault = (*FileSystemVault)(nil)
