// internal/eventlog/store.go
package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/highroll-dev/highroll/internal/game"
)

// Store is the durable append-only event log, one ordered stream per game
// identifier, backed by the game_events table (migrations/001_game_events.sql).
// Safe for concurrent use across game instances; ordering within a stream is
// the caller's responsibility (one writer per game).
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool against the given URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// NewStore wraps an established pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append persists a batch of events for one game atomically, in the order
// given, with contiguous sequence numbers continuing the stream. All-or-
// nothing: on error no event of the batch is visible.
func (s *Store) Append(ctx context.Context, id game.GameID, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var seq int64
		row := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM game_events WHERE game_id = $1`, string(id))
		if err := row.Scan(&seq); err != nil {
			return err
		}

		for _, ev := range events {
			typ, payload, err := encodePayload(ev)
			if err != nil {
				return err
			}
			seq++
			_, err = tx.Exec(ctx,
				`INSERT INTO game_events (game_id, seq, event_type, payload) VALUES ($1, $2, $3, $4)`,
				string(id), seq, typ, payload,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append events for game %s: %w", id, err)
	}
	return nil
}

// Load reads the full event stream for one game in sequence order. An empty
// stream yields an empty slice, not an error.
func (s *Store) Load(ctx context.Context, id game.GameID) ([]game.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_type, payload FROM game_events WHERE game_id = $1 ORDER BY seq`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("load events for game %s: %w", id, err)
	}
	defer rows.Close()

	var events []game.Event
	for rows.Next() {
		var (
			typ     string
			payload []byte
		)
		if err := rows.Scan(&typ, &payload); err != nil {
			return nil, fmt.Errorf("scan event for game %s: %w", id, err)
		}
		ev, err := decodePayload(id, typ, payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load events for game %s: %w", id, err)
	}
	return events, nil
}
