package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mesostats/internal/config"
	"mesostats/internal/db"
	"mesostats/internal/httpapi"
	"mesostats/internal/migrate"
	"mesostats/internal/modules/statistics"
	"mesostats/internal/report"
)

// ErrArchiveDisabled is returned by Serve when no archive is configured.
var ErrArchiveDisabled = errors.New("serve needs an archive: set SQLITE_PATH or DB_DSN")

// Serve exposes the archived runs over HTTP until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
	)
	if !cfg.ArchiveEnabled() {
		return ErrArchiveDisabled
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	if err := report.LoadTemplates(); err != nil {
		return err
	}

	mux := httpapi.NewMux(dbConn)
	statistics.RegisterFeature(mux, dbConn)
	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
