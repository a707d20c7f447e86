package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/edulearn/internal/config"
	"github.com/iudanet/edulearn/internal/server/handlers"
	"github.com/iudanet/edulearn/internal/server/storage"
	"github.com/iudanet/edulearn/internal/server/storage/postgres"
	"github.com/iudanet/edulearn/internal/server/storage/redis"
	"github.com/iudanet/edulearn/internal/server/storage/sqlite"
)

// database is what both SQL backends provide
type database interface {
	storage.UserStorage
	storage.TokenStorage
	Ping(ctx context.Context) error
	Close() error
}

// stores bundles the opened backends
type stores struct {
	users   storage.UserStorage
	tokens  storage.TokenStorage
	checks  map[string]handlers.Pinger
	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openDatabase(ctx context.Context, cfg *config.Config) (database, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.DatabaseDSN)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// openStores opens the user directory and the refresh token store selected by cfg
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}

	s := &stores{
		users:   db,
		tokens:  db,
		checks:  map[string]handlers.Pinger{"database": db},
		closers: []func() error{db.Close},
	}

	if cfg.TokenStore == config.TokenStoreRedis {
		rs, err := redis.New(ctx, cfg.RedisAddr)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open redis token store: %w", err)
		}
		s.tokens = rs
		s.checks["redis"] = rs
		s.closers = append(s.closers, rs.Close)
	}

	logger.InfoContext(ctx, "storage ready",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("token_store", cfg.TokenStore),
	)

	return s, nil
}
