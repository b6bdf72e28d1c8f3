// CLAUDE:SUMMARY Persisted-thumbnail store: lookup by origin, upsert, age-based pruning.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/thumbnail"
)

// Lookup returns the persisted thumbnail for origin, or
// thumbnail.ErrNotFound.
func (s *Store) Lookup(ctx context.Context, origin string) (thumbnail.Image, error) {
	var img thumbnail.Image
	err := s.DB.QueryRowContext(ctx,
		`SELECT mime, data FROM thumbnails WHERE origin = ?`, origin,
	).Scan(&img.MIME, &img.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return thumbnail.Image{}, thumbnail.ErrNotFound
	}
	if err != nil {
		return thumbnail.Image{}, fmt.Errorf("store: lookup thumbnail: %w", err)
	}
	return img, nil
}

// Save upserts the thumbnail for origin.
func (s *Store) Save(ctx context.Context, origin string, img thumbnail.Image) error {
	if origin == "" || len(img.Data) == 0 {
		return fmt.Errorf("store: save thumbnail: empty origin or image")
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO thumbnails (origin, mime, data, captured_at) VALUES (?,?,?,?)
		ON CONFLICT(origin) DO UPDATE SET
			mime = excluded.mime, data = excluded.data, captured_at = excluded.captured_at`,
		origin, img.MIME, img.Data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save thumbnail: %w", err)
	}
	return nil
}

// PruneThumbnails deletes thumbnails captured more than maxAge ago and
// returns how many were removed. A non-positive maxAge keeps everything.
func (s *Store) PruneThumbnails(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM thumbnails WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: prune thumbnails: %w", err)
	}
	return res.RowsAffected()
}

// CountThumbnails returns the number of persisted thumbnails.
func (s *Store) CountThumbnails(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbnails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count thumbnails: %w", err)
	}
	return n, nil
}
