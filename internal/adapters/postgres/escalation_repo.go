// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/example/peerline/internal/ports/secondary"
)

const escalationColumns = `id, content_ref, level, reason, status, assigned_to, detected_at, resolved_at`

// uniqueViolation is the SQLSTATE PostgreSQL reports for a duplicate key.
const uniqueViolation = "23505"

// EscalationRepository implements secondary.EscalationRepository with PostgreSQL.
type EscalationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEscalationRepository creates a new PostgreSQL escalation repository.
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
		`INSERT INTO escalations (`+escalationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("escalation %s already exists: %w", escalation.ID, err)
		}
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
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE id = $1`,
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
// The escalation row is locked by the UPDATE for the rest of the transaction,
// so the note sequence cannot move underneath the append.
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
		`UPDATE escalations SET status = $1, assigned_to = $2, resolved_at = $3 WHERE id = $4 AND status = $5 AND COALESCE(assigned_to, '') = $6`,
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

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM escalations WHERE id = $1)`, escalation.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check escalation existence: %w", err)
		}
		if !exists {
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

	add := func(column, value string) {
		args = append(args, value)
		query += " AND " + column + " = $" + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		add("status", filters.Status)
	}
	if filters.Level != "" {
		add("level", filters.Level)
	}
	if filters.AssignedTo != "" {
		add("assigned_to", filters.AssignedTo)
	}

	query += " ORDER BY detected_at DESC, id DESC"

	return r.query(ctx, query, args...)
}

// ListResolved retrieves escalations resolved at or after since.
func (r *EscalationRepository) ListResolved(ctx context.Context, since time.Time) ([]*secondary.EscalationRecord, error) {
	return r.query(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE status = 'resolved' AND resolved_at >= $1 ORDER BY resolved_at ASC, id ASC`,
		since.UTC(),
	)
}

// GetNextID returns the next available escalation ID.
func (r *EscalationRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 5) AS INTEGER)), 0) FROM escalations`,
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next escalation ID: %w", err)
	}

	return fmt.Sprintf("ESC-%03d", maxID+1), nil
}

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
		`SELECT id, author, text, kind, created_at FROM escalation_notes WHERE escalation_id = $1 ORDER BY seq ASC`,
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
			`INSERT INTO escalation_notes (id, escalation_id, seq, author, text, kind, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) FROM escalation_notes WHERE escalation_id = $1`, escalationID).Scan(&last); err != nil {
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

var _ secondary.EscalationRepository = (*EscalationRepository)(nil)
