package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/app"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// openStore resolves the service configuration from fs and opens the
// configured backend. The caller closes the backend with closeStore.
func openStore(fs *pflag.FlagSet, getenv func(string) string) (storage.Backend, *zap.Logger, error) {
	cfg, err := app.LoadConfig(fs, getenv)
	if err != nil {
		return nil, nil, err
	}
	log, err := app.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.StorageOptions()
	opts.Logger = log
	backend, err := storage.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return backend, log, nil
}

func closeStore(backend storage.Backend, log *zap.Logger) {
	if err := backend.Close(); err != nil {
		log.Warn("closing storage failed", zap.Error(err))
	}
	_ = log.Sync()
}

// readInput reads path, or in for "-".
func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}
