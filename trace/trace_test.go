package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/kit"
)

type entry struct {
	Level     string `json:"level"`
	Op        string `json:"op"`
	Query     string `json:"query"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestDriver_LogsStatements(t *testing.T) {
	buf := capture(t)
	db := dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	ctx := kit.WithRequestID(context.Background(), "req_1")
	if _, err := db.ExecContext(ctx, `CREATE TABLE t (k TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO t (k) VALUES (?)`, "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var k string
	if err := db.QueryRowContext(ctx, `SELECT k FROM t`).Scan(&k); err != nil || k != "a" {
		t.Fatalf("select = %q, %v", k, err)
	}

	var insert, query bool
	for _, e := range entries(t, buf) {
		if strings.HasPrefix(e.Query, "PRAGMA ") {
			t.Errorf("pragma logged: %+v", e)
		}
		if e.Op == "Exec" && strings.HasPrefix(e.Query, "INSERT") {
			insert = true
			if e.Level != "DEBUG" || e.RequestID != "req_1" {
				t.Errorf("insert entry = %+v", e)
			}
		}
		if e.Op == "Query" && strings.HasPrefix(e.Query, "SELECT") {
			query = true
		}
	}
	if !insert || !query {
		t.Errorf("missing entries: insert=%v query=%v\n%s", insert, query, buf)
	}
}

func TestDriver_LogsFailuresAtError(t *testing.T) {
	buf := capture(t)
	db := dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	if _, err := db.Exec(`CREATE TABLE t (k TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	db.Exec(`INSERT INTO t (k) VALUES ('a')`)
	if _, err := db.Exec(`INSERT INTO t (k) VALUES ('a')`); err == nil {
		t.Fatal("duplicate insert succeeded")
	}

	for _, e := range entries(t, buf) {
		if e.Level == "ERROR" && e.Error != "" {
			return
		}
	}
	t.Errorf("no error entry:\n%s", buf)
}

func TestDriver_QuietAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { SetLogger(nil) })
	db := dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	if _, err := db.Exec(`CREATE TABLE t (k TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("fast statements logged at info: %s", buf.String())
	}
}
