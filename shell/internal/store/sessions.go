package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/viewstate"
)

// SaveSession replaces the saved session with views, in order. Each view
// is reduced to its persistent projection before it is written.
func (s *Store) SaveSession(ctx context.Context, views []viewstate.State) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
			return fmt.Errorf("store: clear session: %w", err)
		}
		for i, v := range views {
			data, err := json.Marshal(viewstate.ToPersistent(v))
			if err != nil {
				return fmt.Errorf("store: encode view %s: %w", v.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sessions (view_id, position, state, saved_at) VALUES (?,?,?,?)`,
				v.ID, i, string(data), now); err != nil {
				return fmt.Errorf("store: save view %s: %w", v.ID, err)
			}
		}
		return nil
	})
}

// LoadSession returns the saved views in display order.
func (s *Store) LoadSession(ctx context.Context) ([]viewstate.State, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT view_id, state FROM sessions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: load session: %w", err)
	}
	defer rows.Close()

	var views []viewstate.State
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		var v viewstate.State
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("store: decode view %s: %w", id, err)
		}
		v.ID = id
		views = append(views, v)
	}
	return views, rows.Err()
}
