package exifrec

import (
	"io"
	"io/fs"
)

// FilesystemManager abstracts file access so the service can be tested
// without touching the real filesystem.
type FilesystemManager interface {
	// Resolve returns the absolute, cleaned form of rawPath and its info.
	Resolve(rawPath string) (string, fs.FileInfo, error)

	// FindFiles lists supported media files under root in program order.
	// Ignored files are skipped. Subdirectories are walked when recursive.
	FindFiles(root string, recursive bool) ([]string, error)

	// Hash returns the content hash of the file.
	Hash(path string) (string, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Stat returns fresh file info.
	Stat(path string) (fs.FileInfo, error)
}
