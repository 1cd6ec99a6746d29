// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarydesk/internal/access"
	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/config"
	"librarydesk/internal/journal"
	"librarydesk/internal/logging"
	"librarydesk/internal/membership"
	"librarydesk/internal/seed"
	"librarydesk/internal/server"
	"librarydesk/internal/store"
	"librarydesk/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush telemetry", "error", err)
			}
		}()
	}

	st := store.New()
	if cfg.SeedData {
		if err := seed.Load(st); err != nil {
			return err
		}
		logger.Info("seed data loaded")
	}

	policy := circulation.Policy{
		LoanPeriodDays: cfg.LoanPeriodDays,
		LateFeePerDay:  cfg.LateFeePerDay,
		MissingFine:    cfg.MissingBookFine,
		MissingBooks:   circulation.MissingBookPolicy(cfg.MissingBookPolicy),
	}

	svcs := server.Services{
		Catalog: catalog.NewService(st, logger),
		Membership: membership.NewService(st,
			membership.WithLogger(logger),
			membership.WithRateLimit(cfg.RegistrationRatePerMinute),
		),
		Circulation: circulation.NewService(st, journal.New(),
			circulation.WithPolicy(policy),
			circulation.WithLogger(logger),
		),
	}
	guard := access.NewGuard(access.StaticResolver{
		AdminToken: cfg.AdminToken,
		StaffToken: cfg.StaffToken,
	}, cfg.AuthHeader)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(svcs, guard, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("library desk listening", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
