package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mesostats/internal/app"
	"mesostats/internal/config"
	"mesostats/internal/logging"
)

const appName = "mesostats"

// version is "dev" unless set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cmd); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "command", cmd.name, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd command) error {
	switch cmd.name {
	case commandServe:
		return app.Serve(ctx, cfg)
	default:
		path := cmd.path(cfg.DataDir)
		slog.Debug("report requested", "path", path)
		_, err := app.Report(ctx, cfg, path, os.Stdout)
		return err
	}
}
