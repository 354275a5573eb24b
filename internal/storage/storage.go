// Package storage persists the planner state and cached lookups as opaque
// values under string keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Well-known keys.
const (
	StateKey              = "teamHolidayData"
	SchoolHolidayStateKey = "schoolHolidayState"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("storage: invalid key")

// Backend is a key-value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Kind       string
	Dir        string
	SQLitePath string
	Logger     *zap.Logger
}

// Open returns the configured backend.
func Open(opts Options) (Backend, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch opts.Kind {
	case "", KindFile:
		return NewFileBackend(opts.Dir, log)
	case KindSQLite:
		return OpenSQLite(opts.SQLitePath, log)
	}
	return nil, fmt.Errorf("storage: unknown backend %q", opts.Kind)
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
