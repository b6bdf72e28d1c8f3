package store

// Schema contains the complete DDL for the tabview tables.
const Schema = `
-- Persisted thumbnails, one per origin (registrable domain or host)
CREATE TABLE IF NOT EXISTS thumbnails (
    origin          TEXT PRIMARY KEY,
    mime            TEXT NOT NULL,
    data            BLOB NOT NULL,
    captured_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_thumbnails_captured ON thumbnails(captured_at);

-- Saved session: the persistent projection of each view, in display order
CREATE TABLE IF NOT EXISTS sessions (
    view_id         TEXT PRIMARY KEY,
    position        INTEGER NOT NULL,
    state           TEXT NOT NULL,
    saved_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_position ON sessions(position);

-- Surface diagnostics: page errors, auth prompts, context menus
CREATE TABLE IF NOT EXISTS surface_diagnostics (
    id              TEXT PRIMARY KEY,
    view_id         TEXT NOT NULL,
    kind            TEXT NOT NULL,
    message         TEXT NOT NULL DEFAULT '',
    detail          TEXT NOT NULL DEFAULT '{}',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_view ON surface_diagnostics(view_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_diagnostics_time ON surface_diagnostics(created_at);
`
