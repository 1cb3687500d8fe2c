package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rejoiceinstitute/rejoice-web/config"
	"github.com/rejoiceinstitute/rejoice-web/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(os.Stdout, cfg.IsDev, cfg.LogLevel)

	if err := run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (err error) {
	logger.InfoContext(ctx, "starting rejoice web",
		"addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev,
		"auth_mode", cfg.Auth.Mode,
		"profiles", cfg.Profiles.Backend,
		"cache", cfg.Cache.Backend,
	)

	app, err := bootstrap.New(ctx, *cfg, logger, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("assemble site: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close backends: %w", cerr))
		}
	}()

	return app.Run(ctx)
}
