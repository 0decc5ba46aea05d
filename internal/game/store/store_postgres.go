package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"HoldemTable/internal/game/table"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    game_id    TEXT PRIMARY KEY,
    version    BIGINT NOT NULL,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type pgStore struct {
	db *sql.DB
}

// NewPostgresStore uses the games table, creating it when missing.
func NewPostgresStore(ctx context.Context, db *sql.DB) (Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create games table: %w", err)
	}
	return &pgStore{db: db}, nil
}

func (s *pgStore) Create(ctx context.Context, g *table.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (game_id, version, state) VALUES ($1, 1, $2)`, g.ID, data)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", ErrExists, g.ID)
	}
	return err
}

func (s *pgStore) Load(ctx context.Context, gameID string) (*table.GameState, int64, error) {
	var (
		version int64
		raw     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, state FROM games WHERE game_id = $1`, gameID).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, 0, err
	}
	var g table.GameState
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, 0, fmt.Errorf("corrupt state for %s: %w", gameID, err)
	}
	return &g, version, nil
}

func (s *pgStore) Save(ctx context.Context, gameID string, g *table.GameState, expected int64) (int64, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return 0, err
	}
	var version int64
	err = s.db.QueryRowContext(ctx, `
		UPDATE games SET state = $1, version = version + 1, updated_at = now()
		WHERE game_id = $2 AND version = $3
		RETURNING version`, data, gameID, expected).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM games WHERE game_id = $1)`, gameID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return 0, fmt.Errorf("%w: %s expected %d", ErrVersionConflict, gameID, expected)
}

func (s *pgStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM games ORDER BY game_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *pgStore) Delete(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	return err
}
