// exchanges.go handles the append-only Q&A history.
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// AppendExchange adds e to the end of the session's history and sets its
// ID, position and timestamp. Positions start at 1.
func (db *DB) AppendExchange(ctx context.Context, e *models.QAExchange) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int
	if err := tx.GetContext(ctx, &last,
		tx.Rebind(`SELECT COALESCE(MAX(position), 0) FROM qa_exchanges WHERE session_id = ?`), e.SessionID); err != nil {
		return fmt.Errorf("failed to read history position: %w", err)
	}

	e.ID = uuid.NewString()
	e.Position = last + 1
	e.CreatedAt = now()

	// UNIQUE(session_id, position) rejects a concurrent append that read
	// the same position.
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO qa_exchanges (id, session_id, position, question, answer, status, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.SessionID, e.Position, e.Question, e.Answer, e.Status, e.Source, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}

	if err := touchSession(ctx, tx, e.SessionID, e.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// ListExchanges returns the session's history in insertion order.
func (db *DB) ListExchanges(ctx context.Context, sessionID string) ([]models.QAExchange, error) {
	// Go Pattern: Initialize to an empty slice so JSON encodes [] not null.
	exchanges := []models.QAExchange{}
	err := db.SelectContext(ctx, &exchanges, db.Rebind(`
		SELECT id, session_id, position, question, answer, status, source, created_at
		FROM qa_exchanges WHERE session_id = ? ORDER BY position ASC`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	return exchanges, nil
}
