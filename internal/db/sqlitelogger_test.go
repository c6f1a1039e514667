package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]slog.Value
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.records {
		if m["msg"].String() == "sql" {
			out = append(out, m["op"].String())
		}
	}
	return out
}

func (h *captureHandler) last() map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return nil
	}
	return h.records[len(h.records)-1]
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

func openLogged(t *testing.T) (*sql.DB, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	connector, err := NewLoggingConnector(":memory:", slog.New(handler))
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, handler
}

func TestNewLoggingConnector_nilLoggerUsesDefault(t *testing.T) {
	conn, err := NewLoggingConnector(":memory:", nil)
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	lc, ok := conn.(*loggingConnector)
	if !ok {
		t.Fatalf("got %T, want *loggingConnector", conn)
	}
	if lc.logger != slog.Default() {
		t.Error("nil logger did not fall back to slog.Default()")
	}
}

func TestLoggingDriver_OpenRefused(t *testing.T) {
	if _, err := (&loggingDriver{}).Open(":memory:"); err != errOpenViaConnector {
		t.Errorf("Open() error = %v, want errOpenViaConnector", err)
	}
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	db, handler := openLogged(t)

	if _, err := db.Exec(`CREATE TABLE runs (id TEXT PRIMARY KEY, station_count INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	got := handler.last()
	if got["op"].String() != "exec" {
		t.Errorf("op: got %q, want exec", got["op"].String())
	}
	if got["sql"].String() != `CREATE TABLE runs (id TEXT PRIMARY KEY, station_count INTEGER)` {
		t.Errorf("sql: got %q", got["sql"].String())
	}
	if _, ok := got["took"]; !ok {
		t.Error("expected took attribute")
	}

	handler.reset()
	if _, err := db.Exec(`INSERT INTO runs (id, station_count) VALUES (?, ?)`, "r1", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got = handler.last()
	args, ok := got["args"].Any().([]string)
	if !ok || len(args) != 2 || args[0] != "r1" || args[1] != "NULL" {
		t.Errorf("args: got %v", got["args"])
	}

	handler.reset()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		t.Fatalf("query row: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if got := handler.last(); got["op"].String() != "query" {
		t.Errorf("op: got %q, want query", got["op"].String())
	}
}

func TestLoggingConnector_TransactionLogged(t *testing.T) {
	db, handler := openLogged(t)
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	handler.reset()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.Exec(`INSERT INTO t (id) VALUES (?)`, 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := []string{"begin", "exec", "commit"}
	got := handler.ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ops[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoggingConnector_PrepareErrorLogged(t *testing.T) {
	db, handler := openLogged(t)

	if _, err := db.Exec(`SELEKT 1`); err == nil {
		t.Fatal("expected syntax error")
	}
	got := handler.last()
	if got["op"].String() != "prepare" {
		t.Errorf("op: got %q, want prepare", got["op"].String())
	}
	if _, ok := got["err"]; !ok {
		t.Error("expected err attribute")
	}
}

func TestLoggingConnector_PingSucceeds(t *testing.T) {
	db, _ := openLogged(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
