package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/edulearn/internal/config"
	"github.com/iudanet/edulearn/internal/server/auth"
	"github.com/iudanet/edulearn/internal/server/handlers"
	"github.com/iudanet/edulearn/internal/server/jwt"
	"github.com/iudanet/edulearn/internal/server/middleware"
	"github.com/iudanet/edulearn/internal/server/router"
)

func loadConfig(args []string, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.NewLogger(stderr)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, logger, nil
}

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, logger, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	issuer, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	sessions := auth.NewService(logger, st.users, st.tokens, issuer)

	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, logger)
	defer limiter.Stop()

	handler := router.New(router.Deps{
		Logger:         logger,
		Gate:           middleware.NewGate(logger, issuer),
		Auth:           handlers.NewAuthHandler(logger, sessions),
		Users:          handlers.NewUserHandler(logger, sessions),
		Health:         handlers.NewHealthHandler(logger, Version, st.checks),
		LoginLimiter:   limiter,
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("server started", slog.String("addr", cfg.Addr), slog.String("version", Version))
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
