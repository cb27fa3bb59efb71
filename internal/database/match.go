// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rajamantri/server/internal/models"
)

// RecordMatchResults persists the final outcome of a finished room: one row
// in matches, one row per seat in match_results. Idempotent per match id.
func RecordMatchResults(ctx context.Context, matchID uuid.UUID, roomCode string, totalRounds int, standings []models.Standing) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, room_code, total_rounds, finished_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (id) DO UPDATE SET finished_at = now()
		`
		if _, e := tx.Exec(ctx, upsertMatch, matchID, roomCode, totalRounds); e != nil {
			return e
		}

		for _, st := range standings {
			q := `
				INSERT INTO match_results (match_id, player_id, player_name, points, placement, did_win)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (match_id, player_id)
				DO UPDATE SET points=$4, placement=$5, did_win=$6
			`
			if _, e := tx.Exec(ctx, q, matchID, st.PlayerID, st.Name, st.Points, st.Placement, st.Placement == 1); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or results: %w", err)
	}
	return nil
}
