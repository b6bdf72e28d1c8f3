// CLAUDE:SUMMARY SQL tracing driver "sqlite-trace": wraps modernc sqlite and logs every statement via slog with request correlation.
// Package trace registers the "sqlite-trace" database/sql driver. It wraps
// modernc.org/sqlite and logs every Exec and Query through slog:
//
//	db, err := dbopen.Open(path, dbopen.WithDriver(trace.DriverName))
//
// Levels adapt to the outcome: Debug normally, Warn when a statement takes
// longer than SlowThreshold, Error when it fails. The request id carried by
// kit.WithRequestID is attached so store queries line up with the HTTP or
// MCP call that caused them.
package trace

import (
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
)

// DriverName is the name the tracing driver registers under.
const DriverName = "sqlite-trace"

// SlowThreshold is the duration above which a statement logs at Warn.
const SlowThreshold = 100 * time.Millisecond

var logger atomic.Pointer[slog.Logger]

// SetLogger sets the logger statements are written to. Nil restores
// slog.Default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func getLogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func init() {
	sql.Register(DriverName, &Driver{Driver: &sqlite.Driver{}})
}
