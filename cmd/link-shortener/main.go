package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vadimbarashkov/link-shortener/internal/app"
	"github.com/vadimbarashkov/link-shortener/internal/config"
)

const defaultConfigPath = "config/config.yml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env is fine, the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg)

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", "err", err)
		return err
	}

	logger.Info("application stopped")

	return nil
}
