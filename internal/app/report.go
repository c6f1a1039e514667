package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mesostats/internal/config"
	"mesostats/internal/db"
	"mesostats/internal/mesonet"
	"mesostats/internal/migrate"
	"mesostats/internal/modules/statistics/repository"
	"mesostats/internal/mqtt"
	"mesostats/internal/report"
)

// ReportResult describes one completed report run.
type ReportResult struct {
	RunID     string
	Summary   *mesonet.Summary
	Archived  bool
	Published bool
}

// Report parses the observation file at path, writes the report to out and,
// when configured, archives the run and publishes its results. Nothing is
// written to out when parsing fails.
func Report(ctx context.Context, cfg config.Config, path string, out io.Writer) (ReportResult, error) {
	if err := report.LoadTemplates(); err != nil {
		return ReportResult{}, err
	}

	parser := mesonet.NewParser(mesonet.ParserOptions{
		SkipMalformedRows: cfg.SkipMalformedRows,
		Logger:            slog.Default(),
	})
	catalog, err := parser.ParseFile(ctx, path)
	if err != nil {
		return ReportResult{}, err
	}

	summary, err := mesonet.Aggregate(ctx, catalog)
	if err != nil {
		return ReportResult{}, err
	}
	slog.Info("statistics computed",
		"path", path,
		"observed_at", summary.Timestamp().String(),
		"stations", summary.StationCount(),
	)

	if err := report.Render(out, summary); err != nil {
		return ReportResult{}, fmt.Errorf("render report: %w", err)
	}

	res := ReportResult{RunID: uuid.NewString(), Summary: summary}

	if cfg.ArchiveEnabled() {
		runID, err := archive(ctx, cfg, path, summary)
		if err != nil {
			return res, fmt.Errorf("archive run: %w", err)
		}
		res.RunID = runID
		res.Archived = true
	}

	if cfg.PublishEnabled() {
		if err := publish(ctx, cfg, res.RunID, summary); err != nil {
			return res, fmt.Errorf("publish run: %w", err)
		}
		res.Published = true
	}

	return res, nil
}

func archive(ctx context.Context, cfg config.Config, source string, s *mesonet.Summary) (string, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return "", err
	}

	run, err := repository.NewRepository(dbConn).SaveRun(ctx, source, s)
	if err != nil {
		return "", err
	}
	slog.Info("run archived", "run_id", run.ID, "observed_at", run.ObservedAt)
	return run.ID, nil
}

func publish(ctx context.Context, cfg config.Config, runID string, s *mesonet.Summary) error {
	publisher := mqtt.NewPublisher(cfg, slog.Default())
	defer publisher.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := publisher.Connect(connectCtx); err != nil {
		return err
	}
	return publisher.PublishSummary(ctx, runID, s)
}
