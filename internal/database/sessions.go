// sessions.go handles session rows.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// CreateSession inserts a new session and fills in its ID and timestamps.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	s.ID = uuid.NewString()
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt

	_, err := db.ExecContext(ctx,
		db.Rebind(`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`),
		s.ID, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := db.GetContext(ctx, &s,
		db.Rebind(`SELECT id, created_at, updated_at FROM sessions WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, "session")
	}
	return &s, nil
}

// touchSession bumps updated_at inside a transaction that changed the
// session's state.
func touchSession(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sessions SET updated_at = ? WHERE id = ?`), at, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	return nil
}
