// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/peerline/internal/ports/secondary"
)

const escalationColumns = `id, content_ref, level, reason, status, assigned_to, detected_at, resolved_at`

// EscalationRepository implements secondary.EscalationRepository with SQLite.
type EscalationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEscalationRepository creates a new SQLite escalation repository.
// A nil logger falls back to slog.Default().
func NewEscalationRepository(db *sql.DB, logger *slog.Logger) *EscalationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &EscalationRepository{db: db, logger: logger}
}

// Create persists a new escalation.
func (r *EscalationRepository) Create(ctx context.Context, escalation *secondary.EscalationRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escalations (`+escalationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		escalation.ID,
		escalation.ContentRef,
		escalation.Level,
		escalation.Reason,
		escalation.Status,
		nullString(escalation.AssignedTo),
		escalation.DetectedAt.UTC(),
		nullTime(escalation.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create escalation: %w", err)
	}

	if err := insertNotes(ctx, tx, escalation.ID, 0, escalation.Notes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit escalation: %w", err)
	}
	return nil
}

// GetByID retrieves an escalation and its notes from one read transaction.
func (r *EscalationRepository) GetByID(ctx context.Context, id string) (*secondary.EscalationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE id = ?`,
		id,
	)
	record, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escalation %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	record.Notes, err = loadNotes(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read: %w", err)
	}
	return record, nil
}

// Save conditionally writes lifecycle fields and appends new notes.
func (r *EscalationRepository) Save(ctx context.Context, escalation *secondary.EscalationRecord, expected secondary.Precondition) error {
	if expected.NoteCount < 0 || expected.NoteCount > len(escalation.Notes) {
		return fmt.Errorf("escalation %s carries %d notes but %d were loaded; notes are append-only", escalation.ID, len(escalation.Notes), expected.NoteCount)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE escalations SET status = ?, assigned_to = ?, resolved_at = ?
		 WHERE id = ? AND status = ? AND COALESCE(assigned_to, '') = ?`,
		escalation.Status,
		nullString(escalation.AssignedTo),
		nullTime(escalation.ResolvedAt),
		escalation.ID,
		expected.Status,
		expected.AssignedTo,
	)
	if err != nil {
		return fmt.Errorf("failed to update escalation: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM escalations WHERE id = ?", escalation.ID).Scan(&count); err != nil {
			return fmt.Errorf("failed to check escalation existence: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("escalation %s: %w", escalation.ID, secondary.ErrNotFound)
		}
		r.logger.Debug("conditional save rejected",
			"escalation_id", escalation.ID,
			"expected_status", expected.Status,
		)
		return secondary.ErrConditionFailed
	}

	if err := appendNotes(ctx, tx, escalation.ID, escalation.Notes[expected.NoteCount:]); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit escalation: %w", err)
	}
	return nil
}

// List retrieves escalations matching the given filters.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE 1=1`
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	if filters.Level != "" {
		query += " AND level = ?"
		args = append(args, filters.Level)
	}

	if filters.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, filters.AssignedTo)
	}

	query += " ORDER BY detected_at DESC, id DESC"

	return r.query(ctx, query, args...)
}

// ListResolved retrieves escalations resolved at or after since.
func (r *EscalationRepository) ListResolved(ctx context.Context, since time.Time) ([]*secondary.EscalationRecord, error) {
	return r.query(ctx,
		`SELECT `+escalationColumns+` FROM escalations
		 WHERE status = 'resolved' AND resolved_at >= ?
		 ORDER BY resolved_at ASC, id ASC`,
		since.UTC(),
	)
}

// GetNextID returns the next available escalation ID.
func (r *EscalationRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("ESC-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM escalations", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next escalation ID: %w", err)
	}

	return fmt.Sprintf("ESC-%03d", maxID+1), nil
}

// Helper methods

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscalation(row rowScanner) (*secondary.EscalationRecord, error) {
	var (
		assignedTo sql.NullString
		resolvedAt sql.NullTime
	)

	record := &secondary.EscalationRecord{}
	err := row.Scan(&record.ID, &record.ContentRef, &record.Level, &record.Reason, &record.Status, &assignedTo, &record.DetectedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	record.AssignedTo = assignedTo.String
	record.DetectedAt = record.DetectedAt.UTC()
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		record.ResolvedAt = &t
	}
	return record, nil
}

func (r *EscalationRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.EscalationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*secondary.EscalationRecord
	for rows.Next() {
		record, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	return escalations, nil
}

func loadNotes(ctx context.Context, tx *sql.Tx, escalationID string) ([]*secondary.EscalationNoteRecord, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, author, text, kind, created_at FROM escalation_notes WHERE escalation_id = ? ORDER BY seq ASC`,
		escalationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation notes: %w", err)
	}
	defer rows.Close()

	var notes []*secondary.EscalationNoteRecord
	for rows.Next() {
		n := &secondary.EscalationNoteRecord{}
		if err := rows.Scan(&n.ID, &n.Author, &n.Text, &n.Kind, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escalation note: %w", err)
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func insertNotes(ctx context.Context, tx *sql.Tx, escalationID string, firstSeq int, notes []*secondary.EscalationNoteRecord) error {
	for i, n := range notes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO escalation_notes (id, escalation_id, seq, author, text, kind, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, escalationID, firstSeq+i, n.Author, n.Text, n.Kind, n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to append escalation note: %w", err)
		}
	}
	return nil
}

// appendNotes inserts notes after the highest stored seq, so entries committed
// by other writers since the caller's load stay ahead of them.
func appendNotes(ctx context.Context, tx *sql.Tx, escalationID string, notes []*secondary.EscalationNoteRecord) error {
	if len(notes) == 0 {
		return nil
	}
	var last int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) FROM escalation_notes WHERE escalation_id = ?`, escalationID).Scan(&last); err != nil {
		return fmt.Errorf("failed to read escalation note sequence: %w", err)
	}
	return insertNotes(ctx, tx, escalationID, last+1, notes)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Ensure EscalationRepository implements the interface
var _ secondary.EscalationRepository = (*EscalationRepository)(nil)
