package trace

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/tabview/kit"
)

// Driver wraps another driver, tracing every prepared statement it runs.
type Driver struct {
	driver.Driver
}

func (d *Driver) Open(name string) (driver.Conn, error) {
	c, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	return &conn{Conn: c}, nil
}

type conn struct {
	driver.Conn
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	st, err := c.Conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &stmt{Stmt: st, query: query}, nil
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	pc, ok := c.Conn.(driver.ConnPrepareContext)
	if !ok {
		return c.Prepare(query)
	}
	st, err := pc.PrepareContext(ctx, query)
	if err != nil {
		record(ctx, "Prepare", query, 0, err)
		return nil, err
	}
	return &stmt{Stmt: st, query: query}, nil
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bt, ok := c.Conn.(driver.ConnBeginTx); ok {
		return bt.BeginTx(ctx, opts)
	}
	return c.Conn.Begin()
}

type stmt struct {
	driver.Stmt
	query string
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var res driver.Result
	var err error
	if ec, ok := s.Stmt.(driver.StmtExecContext); ok {
		res, err = ec.ExecContext(ctx, args)
	} else {
		res, err = s.Stmt.Exec(values(args))
	}
	record(ctx, "Exec", s.query, time.Since(start), err)
	return res, err
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var rows driver.Rows
	var err error
	if qc, ok := s.Stmt.(driver.StmtQueryContext); ok {
		rows, err = qc.QueryContext(ctx, args)
	} else {
		rows, err = s.Stmt.Query(values(args))
	}
	record(ctx, "Query", s.query, time.Since(start), err)
	return rows, err
}

func record(ctx context.Context, op, query string, d time.Duration, err error) {
	// Pragmas are noise unless slow or failing.
	if err == nil && d < 10*time.Millisecond && strings.HasPrefix(query, "PRAGMA ") {
		return
	}

	level := slog.LevelDebug
	switch {
	case err != nil:
		level = slog.LevelError
	case d > SlowThreshold:
		level = slog.LevelWarn
	}
	l := getLogger()
	if !l.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("component", "sql"),
		slog.String("op", op),
		slog.String("query", query),
		slog.Duration("duration", d),
	}
	if id := kit.GetRequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(ctx, level, "SQL", attrs...)
}

func values(named []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(named))
	for i, nv := range named {
		out[i] = nv.Value
	}
	return out
}
