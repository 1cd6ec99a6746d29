// cmd/drill/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librarydesk/internal/clients"
	"librarydesk/internal/config"
	"librarydesk/internal/drill"
	"librarydesk/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-drill")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	desk := clients.NewClient(cfg.DrillTarget,
		clients.WithToken(cfg.StaffToken),
		clients.WithHeader(cfg.AuthHeader),
	)

	runner := drill.NewRunner(logger, 100*time.Millisecond)
	logger.Info("starting drills", "target", cfg.DrillTarget)
	if !runner.RunAll(ctx, drill.Standard(desk)) {
		logger.Error("drills failed")
		os.Exit(1)
	}
	logger.Info("all drills passed")
}
