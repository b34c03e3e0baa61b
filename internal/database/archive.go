// Package database archives final match results in Postgres. The engine
// keeps no history beyond the in-memory move list; this is the only durable
// record of a finished match.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ludoverse/ludo/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	match_id     UUID PRIMARY KEY,
	winner_id    TEXT NOT NULL DEFAULT '',
	finish_order TEXT[] NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL,
	move_count   INT NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL
)`

// Archive writes match results through a pgx pool.
type Archive struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// Connect opens a pool against the given URL and ensures the schema.
func Connect(ctx context.Context, url string, log *logrus.Logger) (*Archive, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	a := &Archive{pool: pool, log: log.WithField("component", "database")}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ensure schema: %w", err)
	}
	return a, nil
}

// SaveMatchResult upserts one final result. Rewrites with the same match id
// are idempotent, so a host retry after a failed publish is harmless.
func (a *Archive) SaveMatchResult(ctx context.Context, res *models.MatchResult) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO match_results (match_id, winner_id, finish_order, status, move_count, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO UPDATE SET
			winner_id = EXCLUDED.winner_id,
			finish_order = EXCLUDED.finish_order,
			status = EXCLUDED.status,
			move_count = EXCLUDED.move_count,
			ended_at = EXCLUDED.ended_at`,
		res.MatchID, res.WinnerID, res.FinishOrder, res.Status, res.MoveCount, res.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("database: save match result: %w", err)
	}
	a.log.WithFields(logrus.Fields{"match": res.MatchID, "winner": res.WinnerID}).Info("match result archived")
	return nil
}

// Result reads one archived result, for tooling.
func (a *Archive) Result(ctx context.Context, matchID string) (*models.MatchResult, error) {
	var res models.MatchResult
	row := a.pool.QueryRow(ctx, `
		SELECT match_id, winner_id, finish_order, status, move_count, ended_at
		FROM match_results WHERE match_id = $1`, matchID)
	if err := row.Scan(&res.MatchID, &res.WinnerID, &res.FinishOrder, &res.Status, &res.MoveCount, &res.EndedAt); err != nil {
		return nil, fmt.Errorf("database: load match result: %w", err)
	}
	return &res, nil
}

// Close releases the pool.
func (a *Archive) Close() {
	a.pool.Close()
}
