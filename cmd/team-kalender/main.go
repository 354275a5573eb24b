package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/app"
	"github.com/klabast/wb-services/team-kalender/internal/commands"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

func main() {
	// Check for subcommands
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "hash-password":
			commands.HashPassword(os.Args[2:])
			return
		case "import":
			err = commands.Import(os.Args[2:], os.Getenv, os.Stdin, os.Stdout)
		case "export":
			err = commands.Export(os.Args[2:], os.Getenv, os.Stdout)
		default:
			serve(os.Args[1:])
			return
		}
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	serve(nil)
}

func serve(args []string) {
	fs := pflag.NewFlagSet("team-kalender", pflag.ExitOnError)
	app.BindFlags(fs)
	fs.Parse(args)

	cfg, err := app.LoadConfig(fs, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := app.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	opts := cfg.StorageOptions()
	opts.Logger = log.Named("storage")
	backend, err := storage.Open(opts)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer backend.Close()

	// Load and validate auth credentials (if edit mode)
	var auth *app.Auth
	if cfg.Edit {
		path, err := app.ResolveAuthFile(cfg.AuthFile)
		if err != nil {
			log.Fatal("failed to resolve auth file", zap.Error(err))
		}
		auth, err = app.LoadAuth(path, log.Named("auth"))
		if err != nil {
			log.Fatal("failed to load auth credentials", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := app.NewServer(ctx, app.ServerOptions{
		Config:  cfg,
		Backend: backend,
		Auth:    auth,
		Logger:  log,
	})
	server.PreloadSchoolHolidays()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting Teamkalender",
		zap.String("mode", cfg.Mode()),
		zap.String("listen", cfg.Listen),
		zap.String("storage", cfg.Storage),
		zap.String("data_dir", cfg.DataDir),
		zap.String("school_holiday_state", cfg.SchoolHolidayState))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
		server.WaitSchoolHolidays()
	}
}
