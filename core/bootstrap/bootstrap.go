package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/postbot/core/config"
	coredatabase "github.com/m3rciful/postbot/core/database"
	"github.com/m3rciful/postbot/core/logger"
)

// Options control the bootstrap pipeline. Nil funcs fall back to the core implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Wait       func(ctx context.Context, dsn string, timeout time.Duration) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error

	// WaitTimeout bounds how long to wait for postgres to accept connections; 0 skips waiting.
	WaitTimeout time.Duration
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil unless the postgres storage driver is configured.
	DB *sqlx.DB
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, for the postgres storage driver, connects
// to the database and applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.Config.Storage.Driver != coreconfig.StoragePostgres {
		logger.Info(ctx, "app", "storage",
			slog.String("driver", opts.Config.Storage.Driver),
			slog.String("path", opts.Config.Storage.Path),
		)
		return &Result{}, nil
	}

	dbCfg := opts.Config.Database
	if opts.WaitTimeout > 0 {
		wait := opts.Wait
		if wait == nil {
			wait = coredatabase.WaitForPostgres
		}
		if err := wait(ctx, coredatabase.DSN(dbCfg), opts.WaitTimeout); err != nil {
			return nil, fmt.Errorf("bootstrap: database not ready: %w", err)
		}
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
