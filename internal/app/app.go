package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/repository/sqlite"
	"github.com/vadimbarashkov/link-shortener/internal/clicktracker"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/usecase"
	"github.com/vadimbarashkov/link-shortener/migrations"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/link-shortener/internal/adapter/delivery/http"
	pgdb "github.com/vadimbarashkov/link-shortener/pkg/postgres"
	sqlitedb "github.com/vadimbarashkov/link-shortener/pkg/sqlite"
)

const shutdownTimeout = 10 * time.Second

type linkStore interface {
	Save(ctx context.Context, shortCode, originalURL string) (*entity.Link, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error)
	RetrieveAll(ctx context.Context) ([]*entity.Link, error)
	Remove(ctx context.Context, shortCode string) error
	IncrementClicks(ctx context.Context, id uuid.UUID, clickedAt time.Time) error
}

func NewLogger(cfg *config.Config) *httplog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return httplog.NewLogger("link-shortener", httplog.Options{
		JSON:            cfg.Env == config.EnvProd,
		Concise:         cfg.Env != config.EnvProd,
		LogLevel:        level,
		QuietDownRoutes: []string{"/api/ping", "/metrics"},
		QuietDownPeriod: time.Minute,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracker := clicktracker.New(store, logger.Logger, clicktracker.NewMetrics(reg),
		clicktracker.WithWorkers(cfg.ClickTracker.Workers),
		clicktracker.WithQueueSize(cfg.ClickTracker.QueueSize),
		clicktracker.WithTimeout(cfg.ClickTracker.Timeout),
	)
	linkUseCase := usecase.NewLinkUseCase(cfg.ShortCodeLength, store, tracker)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, reg, linkUseCase),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// The tracker outlives the server so clicks from in-flight redirects are kept.
	trackerCtx, stopTracker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopTracker()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tracker.Run(trackerCtx)
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("storage", cfg.Storage))

		var err error

		switch {
		case cfg.Env == config.EnvProd && cfg.HTTPServer.CertFile != "":
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		defer stopTracker()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (linkStore, func() error, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := sqlitedb.New(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := sqlite.CreateSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}

		return sqlite.NewLinkRepository(db), db.Close, nil
	default:
		db, err := pgdb.New(
			ctx,
			cfg.Postgres.DSN(),
			pgdb.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pgdb.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pgdb.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pgdb.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := pgdb.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return postgres.NewLinkRepository(db), db.Close, nil
	}
}
