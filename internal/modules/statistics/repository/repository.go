package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"mesostats/internal/mesonet"
	"mesostats/internal/modules/statistics/types"
)

//go:embed sql/insert-run.sql
var insertRunSQL string

//go:embed sql/insert-statistic.sql
var insertStatisticSQL string

//go:embed sql/delete-statistics-by-observed-at.sql
var deleteStatisticsByObservedAtSQL string

//go:embed sql/delete-run-by-observed-at.sql
var deleteRunByObservedAtSQL string

//go:embed sql/get-run.sql
var getRunSQL string

//go:embed sql/list-runs.sql
var listRunsSQL string

//go:embed sql/get-statistics.sql
var getStatisticsSQL string

// ErrNotFound is returned when no run exists for the requested time.
var ErrNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

type StatisticsRepository interface {
	SaveRun(ctx context.Context, source string, s *mesonet.Summary) (types.Run, error)
	GetRun(ctx context.Context, observedAt time.Time) (types.Run, error)
	ListRuns(ctx context.Context, limit int) ([]types.Run, error)
	GetStatistics(ctx context.Context, observedAt time.Time) ([]types.Statistic, error)
	LoadSummary(ctx context.Context, observedAt time.Time) (*mesonet.Summary, error)
}

type repositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) StatisticsRepository {
	return &repositoryImpl{db: db, now: time.Now}
}

// SaveRun stores s under a fresh run id. A run already archived for the same
// observation time is replaced.
func (r *repositoryImpl) SaveRun(ctx context.Context, source string, s *mesonet.Summary) (run types.Run, err error) {
	if s == nil {
		return types.Run{}, errors.New("save run: nil summary")
	}
	run = types.Run{
		ID:           uuid.NewString(),
		ObservedAt:   s.Timestamp().Time().UTC(),
		Source:       source,
		StationCount: s.StationCount(),
		CreatedAt:    r.now().UTC(),
	}
	observedAt := formatTime(run.ObservedAt)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback save run", "run_id", run.ID, "error", rbErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteStatisticsByObservedAtSQL, observedAt); err != nil {
		return types.Run{}, fmt.Errorf("delete previous statistics: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteRunByObservedAtSQL, observedAt); err != nil {
		return types.Run{}, fmt.Errorf("delete previous run: %w", err)
	}
	if _, err = tx.ExecContext(ctx, insertRunSQL,
		run.ID, observedAt, run.Source, run.StationCount, formatTime(run.CreatedAt),
	); err != nil {
		return types.Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatisticSQL)
	if err != nil {
		return types.Run{}, fmt.Errorf("prepare insert statistic: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Error("close insert statistic stmt", "error", closeErr)
		}
	}()

	for _, e := range s.Entries() {
		res := e.Result
		if _, err = stmt.ExecContext(ctx,
			run.ID,
			e.Parameter.String(),
			res.Kind().String(),
			nullableValue(res.Value()),
			res.StationID(),
			res.ReportingCount(),
		); err != nil {
			return types.Run{}, fmt.Errorf("insert statistic %s/%s: %w", e.Parameter, res.Kind(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return types.Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

func (r *repositoryImpl) GetRun(ctx context.Context, observedAt time.Time) (types.Run, error) {
	row := r.db.QueryRowContext(ctx, getRunSQL, formatTime(observedAt))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, ErrNotFound
	}
	return run, err
}

func (r *repositoryImpl) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	rows, err := r.db.QueryContext(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close runs rows", "error", err)
		}
	}()
	out := []types.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetStatistics returns the archived results for observedAt in the order
// they were stored. It returns ErrNotFound when the run does not exist.
func (r *repositoryImpl) GetStatistics(ctx context.Context, observedAt time.Time) ([]types.Statistic, error) {
	if _, err := r.GetRun(ctx, observedAt); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, getStatisticsSQL, formatTime(observedAt))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close statistics rows", "error", err)
		}
	}()
	out := []types.Statistic{}
	for rows.Next() {
		var st types.Statistic
		var value sql.NullFloat64
		if err := rows.Scan(&st.Parameter, &st.Kind, &value, &st.StationID, &st.ReportingCount); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Float64
			st.Value = &v
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// LoadSummary rebuilds the summary archived for observedAt. Values stored as
// NULL come back as the empty-set sentinels: +Inf for a minimum, -Inf for a
// maximum and NaN for an average.
func (r *repositoryImpl) LoadSummary(ctx context.Context, observedAt time.Time) (*mesonet.Summary, error) {
	run, err := r.GetRun(ctx, observedAt)
	if err != nil {
		return nil, err
	}
	stats, err := r.GetStatistics(ctx, observedAt)
	if err != nil {
		return nil, err
	}

	ts := mesonet.TimestampFromTime(run.ObservedAt)
	entries := make([]mesonet.Entry, 0, len(stats))
	for _, st := range stats {
		p, ok := mesonet.ParseParameter(st.Parameter)
		if !ok {
			return nil, fmt.Errorf("run %s: unknown parameter %q", run.ID, st.Parameter)
		}
		k, ok := mesonet.ParseKind(st.Kind)
		if !ok {
			return nil, fmt.Errorf("run %s: unknown kind %q", run.ID, st.Kind)
		}
		value := emptyValue(k)
		if st.Value != nil {
			value = *st.Value
		}
		entries = append(entries, mesonet.Entry{
			Parameter: p,
			Result:    mesonet.NewStatisticResult(value, st.StationID, ts, int32(st.ReportingCount), k),
		})
	}
	return mesonet.NewSummary(ts, run.StationCount, entries)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (types.Run, error) {
	var run types.Run
	var observedAt, createdAt string
	if err := row.Scan(&run.ID, &observedAt, &run.Source, &run.StationCount, &createdAt); err != nil {
		return types.Run{}, err
	}
	var err error
	if run.ObservedAt, err = parseTime(observedAt); err != nil {
		return types.Run{}, err
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Run{}, err
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func emptyValue(k mesonet.Kind) float64 {
	switch k {
	case mesonet.Minimum:
		return math.Inf(1)
	case mesonet.Maximum:
		return math.Inf(-1)
	default:
		return math.NaN()
	}
}
