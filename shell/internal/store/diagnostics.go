// CLAUDE:SUMMARY Surface diagnostics log: records page errors, auth prompts and context menus; retention cleanup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/tabview/idgen"
	"github.com/hazyhaar/tabview/surface"
)

// Diagnostic is one recorded surface report.
type Diagnostic struct {
	ID        string          `json:"id"`
	ViewID    string          `json:"view_id"`
	Kind      surface.Kind    `json:"kind"`
	Message   string          `json:"message,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// DiagnosticsLog writes surface diagnostics. It satisfies
// controller.Diagnostics.
type DiagnosticsLog struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
}

// DiagnosticsOption configures a DiagnosticsLog.
type DiagnosticsOption func(*DiagnosticsLog)

// WithDiagnosticsIDGenerator sets a custom ID generator for rows.
func WithDiagnosticsIDGenerator(gen idgen.Generator) DiagnosticsOption {
	return func(l *DiagnosticsLog) { l.newID = gen }
}

// WithDiagnosticsLogger sets the logger used for reports and failures.
func WithDiagnosticsLogger(logger *slog.Logger) DiagnosticsOption {
	return func(l *DiagnosticsLog) { l.logger = logger }
}

// Diagnostics returns a log backed by the store's database.
func (s *Store) Diagnostics(opts ...DiagnosticsOption) *DiagnosticsLog {
	l := &DiagnosticsLog{
		db:     s.DB,
		newID:  idgen.Prefixed("diag_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Report records ev for viewID. Non-blocking: a failing insert is logged
// and dropped so diagnostics never stall the view.
func (l *DiagnosticsLog) Report(ctx context.Context, viewID string, ev surface.Event) {
	l.logger.Info("surface diagnostic", "view", viewID, "kind", ev.Kind, "message", ev.Text)

	detail, err := json.Marshal(ev)
	if err != nil {
		detail = []byte("{}")
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO surface_diagnostics (id, view_id, kind, message, detail, created_at)
		VALUES (?,?,?,?,?,?)`,
		l.newID(), viewID, string(ev.Kind), ev.Text, string(detail), time.Now().UnixMilli())
	if err != nil {
		l.logger.Error("store: diagnostics insert failed", "error", err, "kind", ev.Kind)
	}
}

// Recent returns up to limit diagnostics, newest first. An empty viewID
// lists every view.
func (l *DiagnosticsLog) Recent(ctx context.Context, viewID string, limit int) ([]Diagnostic, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, view_id, kind, message, detail, created_at FROM surface_diagnostics`
	var args []any
	if viewID != "" {
		query += ` WHERE view_id = ?`
		args = append(args, viewID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list diagnostics: %w", err)
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		var kind, detail string
		if err := rows.Scan(&d.ID, &d.ViewID, &kind, &d.Message, &detail, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan diagnostic: %w", err)
		}
		d.Kind = surface.Kind(kind)
		d.Detail = json.RawMessage(detail)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Cleanup deletes diagnostics older than maxAge. A non-positive maxAge
// keeps everything.
func (l *DiagnosticsLog) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := l.db.ExecContext(ctx, `DELETE FROM surface_diagnostics WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup diagnostics: %w", err)
	}
	return res.RowsAffected()
}
