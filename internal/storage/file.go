package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// File naming and permissions of the file backend.
const (
	FileSuffix      = ".json"
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp"
	FilePermissions = 0644
	DirPermissions  = 0755
)

// FileBackend stores each key as one file in a directory. Writes go to a
// temporary file that is renamed into place; the previous value is kept
// as a backup.
type FileBackend struct {
	dir string
	log *zap.Logger
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string, log *zap.Logger) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: data directory is required")
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileBackend{dir: dir, log: log}, nil
}

// Path returns the file holding key.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, key+FileSuffix)
}

// Get reads key. When the main file is missing but a backup exists (a
// save was interrupted between its renames) the backup is returned.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	path := b.Path(key)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	data, backupErr := os.ReadFile(path + BackupSuffix)
	if backupErr != nil {
		return nil, ErrNotFound
	}
	b.log.Warn("main file missing, loading backup", zap.String("path", path+BackupSuffix))
	return data, nil
}

// Put writes key atomically, keeping the previous value as backup.
func (b *FileBackend) Put(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := b.Path(key)

	// Write to temp file first
	tmpFile := path + TmpSuffix
	if err := os.WriteFile(tmpFile, value, FilePermissions); err != nil {
		return err
	}

	// Create backup
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+BackupSuffix); err != nil {
			b.log.Warn("failed to create backup", zap.String("path", path), zap.Error(err))
		}
	}

	// Rename temp file to actual file
	return os.Rename(tmpFile, path)
}

// Delete removes key and its backup. Deleting a missing key is not an error.
func (b *FileBackend) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := b.Path(key)
	for _, p := range []string{path, path + BackupSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Close implements Backend.
func (b *FileBackend) Close() error { return nil }
