// documents.go handles the active document and its summary.
//
// Go Pattern: We split database operations into multiple files for
// organization. Each file handles one "domain" and they all share the
// same *DB receiver.
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

const documentColumns = `id, session_id, name, mime_type, kind, size_bytes, raw_bytes,
	extracted_text, extraction_status, strategy, page_count, word_count, created_at`

// documentMetaColumns skips raw_bytes for reads that never need the file.
const documentMetaColumns = `id, session_id, name, mime_type, kind, size_bytes,
	extracted_text, extraction_status, strategy, page_count, word_count, created_at`

// ReplaceDocument makes doc the session's only document and creates its
// summary row. Any previous document and summary are deleted in the same
// transaction. Q&A history is kept.
func (db *DB) ReplaceDocument(ctx context.Context, doc *models.Document, summary *models.SummaryResult) error {
	doc.ID = uuid.NewString()
	doc.CreatedAt = now()
	summary.DocumentID = doc.ID
	summary.SessionID = doc.SessionID
	summary.SourceDocumentName = doc.Name
	summary.CreatedAt = doc.CreatedAt
	summary.UpdatedAt = doc.CreatedAt

	// Go Pattern: A transaction groups statements so they all succeed or
	// none do. The deferred Rollback is a no-op after Commit.
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocument(ctx, tx, doc.SessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, doc.SessionID, doc.Name, doc.MimeType, doc.Kind, doc.SizeBytes, doc.RawBytes,
		doc.ExtractedText, doc.ExtractionStatus, doc.Strategy, doc.PageCount, doc.WordCount, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO summaries (document_id, session_id, status, text, source_document_name, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		summary.DocumentID, summary.SessionID, summary.Status, summary.Text,
		summary.SourceDocumentName, summary.Mode, summary.CreatedAt, summary.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	if err := touchSession(ctx, tx, doc.SessionID, doc.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveDocument deletes the session's document, its summary and the
// whole Q&A history. It reports whether there was a document to remove.
func (db *DB) RemoveDocument(ctx context.Context, sessionID string) (bool, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM documents WHERE session_id = ?`), sessionID); err != nil {
		return false, fmt.Errorf("failed to count documents: %w", err)
	}

	if err := deleteDocument(ctx, tx, sessionID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM qa_exchanges WHERE session_id = ?`), sessionID); err != nil {
		return false, fmt.Errorf("failed to clear history: %w", err)
	}
	if err := touchSession(ctx, tx, sessionID, now()); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return count > 0, nil
}

// deleteDocument removes the summary first so the foreign key holds.
func deleteDocument(ctx context.Context, tx *sqlx.Tx, sessionID string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM summaries WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM documents WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GetActiveDocument returns the session's document without its raw bytes.
func (db *DB) GetActiveDocument(ctx context.Context, sessionID string) (*models.Document, error) {
	var d models.Document
	err := db.GetContext(ctx, &d,
		db.Rebind(`SELECT `+documentMetaColumns+` FROM documents WHERE session_id = ?`), sessionID)
	if err != nil {
		return nil, notFound(err, "document")
	}
	return &d, nil
}

// GetDocument returns a document by ID, raw bytes included.
func (db *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	err := db.GetContext(ctx, &d,
		db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, "document")
	}
	return &d, nil
}

// GetSummary returns the summary of the session's active document.
func (db *DB) GetSummary(ctx context.Context, sessionID string) (*models.SummaryResult, error) {
	var s models.SummaryResult
	err := db.GetContext(ctx, &s, db.Rebind(`
		SELECT document_id, session_id, status, text, source_document_name, mode, created_at, updated_at
		FROM summaries WHERE session_id = ?`), sessionID)
	if err != nil {
		return nil, notFound(err, "summary")
	}
	return &s, nil
}

// ApplySummary stores a finished summary. The row only exists while its
// document is active, so a summary for a replaced or removed document
// matches nothing and is dropped. It reports whether the summary was applied.
func (db *DB) ApplySummary(ctx context.Context, s *models.SummaryResult) (bool, error) {
	s.UpdatedAt = now()
	res, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE summaries SET status = ?, text = ?, mode = ?, updated_at = ?
		WHERE document_id = ?`),
		s.Status, s.Text, s.Mode, s.UpdatedAt, s.DocumentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
