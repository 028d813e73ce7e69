package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalConfig configures the local filesystem backend.
type LocalConfig struct {
	// BasePath is the root directory. All object paths are relative to it.
	BasePath string

	// Permissions for new files. Default 0644.
	Permissions os.FileMode

	// DirPermissions for new directories. Default 0755.
	DirPermissions os.FileMode
}

// Local stores objects on the local filesystem under a base directory.
type Local struct {
	basePath       string
	permissions    os.FileMode
	dirPermissions os.FileMode
}

// NewLocal creates the local backend, creating BasePath if needed.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("%w: BasePath is required", ErrInvalidConfig)
	}

	basePath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve path: %w", err)
	}

	permissions := cfg.Permissions
	if permissions == 0 {
		permissions = 0644
	}
	dirPermissions := cfg.DirPermissions
	if dirPermissions == 0 {
		dirPermissions = 0755
	}

	if err := os.MkdirAll(basePath, dirPermissions); err != nil {
		return nil, fmt.Errorf("storage: failed to create base directory: %w", err)
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: base path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: BasePath must be a directory", ErrInvalidConfig)
	}

	return &Local{
		basePath:       basePath,
		permissions:    permissions,
		dirPermissions: dirPermissions,
	}, nil
}

func (l *Local) Backend() string { return "local" }

// fullPath maps an object path to a filesystem path inside basePath.
func (l *Local) fullPath(path string) (string, error) {
	path = NormalizePath(path)
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	full := filepath.Join(l.basePath, path)
	// Joining must not escape the base directory.
	if !strings.HasPrefix(full, l.basePath) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// Put writes an object atomically via a temp file and rename.
func (l *Local) Put(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, l.dirPermissions); err != nil {
		return fmt.Errorf("storage: failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("storage: failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return fmt.Errorf("storage: failed to write file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("storage: failed to sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("storage: failed to close file: %w", err)
	}
	if err := os.Chmod(tmpPath, l.permissions); err != nil {
		return fmt.Errorf("storage: failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("storage: failed to rename file: %w", err)
	}

	success = true
	return nil
}

func (l *Local) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("storage: failed to open file: %w", err)
	}
	return file, nil
}

func (l *Local) GetWithInfo(ctx context.Context, path string) (io.ReadCloser, *ObjectInfo, error) {
	file, err := l.Get(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	f, ok := file.(*os.File)
	if !ok {
		file.Close()
		return nil, nil, fmt.Errorf("storage: unexpected reader type")
	}
	info, err := f.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("storage: failed to stat file: %w", err)
	}
	return file, l.objectInfo(path, info), nil
}

func (l *Local) Head(ctx context.Context, path string) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("storage: failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	return l.objectInfo(path, info), nil
}

func (l *Local) objectInfo(path string, info os.FileInfo) *ObjectInfo {
	return &ObjectInfo{
		Path:         NormalizePath(path),
		Size:         info.Size(),
		ContentType:  DetectContentType(path, nil),
		LastModified: info.ModTime(),
	}
}

func (l *Local) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		if os.IsPermission(err) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("storage: failed to delete file: %w", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullPath, err := l.fullPath(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: failed to check existence: %w", err)
	}
	return !info.IsDir(), nil
}
