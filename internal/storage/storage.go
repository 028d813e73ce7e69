// Package storage abstracts file storage for uploaded documents such as
// resumes and cover letters. The local filesystem backend is the default;
// the interface keeps room for object stores later.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("storage: object not found")
	ErrPermissionDenied = errors.New("storage: permission denied")
	ErrInvalidPath      = errors.New("storage: invalid path")
	ErrInvalidConfig    = errors.New("storage: invalid configuration")
)

// Store is implemented by storage backends.
type Store interface {
	// Put writes an object. An existing object at the same path is replaced.
	Put(ctx context.Context, path string, r io.Reader) error

	// Get opens an object for reading. The caller closes the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// GetWithInfo opens an object and returns its metadata.
	GetWithInfo(ctx context.Context, path string) (io.ReadCloser, *ObjectInfo, error)

	// Head returns metadata without reading the object.
	Head(ctx context.Context, path string) (*ObjectInfo, error)

	// Delete removes an object.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Backend returns the backend type identifier.
	Backend() string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// NormalizePath cleans an object path into the canonical slash-separated form.
func NormalizePath(path string) string {
	path = strings.Trim(path, "/")
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// ValidatePath rejects empty paths, traversal attempts, and null bytes.
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	if strings.Contains(path, "..") {
		return ErrInvalidPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

// DetectContentType resolves the MIME type from the file extension, falling
// back to sniffing the content when the extension is unknown.
func DetectContentType(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mimeTypes[ext]; ct != "" {
		return ct
	}
	if len(content) > 0 {
		return http.DetectContentType(content)
	}
	return "application/octet-stream"
}

// mimeTypes covers the document and image formats accepted for uploads.
var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}
