package store

import (
	"context"
	"errors"

	"HoldemTable/internal/game/table"
)

var (
	ErrNotFound        = errors.New("game not found")
	ErrExists          = errors.New("game already exists")
	ErrVersionConflict = errors.New("version conflict")
)

// Store persists one GameState per table with optimistic concurrency: every
// successful write bumps the version, and Save only succeeds against the version
// the caller loaded.
type Store interface {
	// Create stores a new table at version 1.
	Create(ctx context.Context, g *table.GameState) error
	// Load returns the current snapshot and its version.
	Load(ctx context.Context, gameID string) (*table.GameState, int64, error)
	// Save writes g if the stored version still equals expected, returning the new version.
	Save(ctx context.Context, gameID string, g *table.GameState, expected int64) (int64, error)
	// List returns the ids of all stored tables.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, gameID string) error
}
