// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors every EscalationRepository implementation wraps.
var (
	// ErrNotFound means no escalation exists with the requested ID.
	ErrNotFound = errors.New("not found")

	// ErrConditionFailed means a conditional Save found the stored record
	// no longer matched the caller's Precondition. Nothing was written.
	ErrConditionFailed = errors.New("condition failed")
)

// EscalationRepository defines the secondary port for escalation persistence.
type EscalationRepository interface {
	// Create persists a new escalation together with any initial notes.
	Create(ctx context.Context, escalation *EscalationRecord) error

	// GetByID retrieves an escalation and its notes in append order.
	GetByID(ctx context.Context, id string) (*EscalationRecord, error)

	// Save writes the lifecycle fields of escalation and appends the notes past
	// expected.NoteCount after the stored journal, in one transaction, only if
	// the stored status and assignee still equal expected. Otherwise returns
	// ErrConditionFailed. Notes committed by other writers since the load are kept.
	Save(ctx context.Context, escalation *EscalationRecord, expected Precondition) error

	// List retrieves escalations matching the given filters, newest first.
	// Notes are not loaded.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)

	// ListResolved retrieves resolved escalations with resolved_at >= since,
	// oldest resolution first. Notes are not loaded.
	ListResolved(ctx context.Context, since time.Time) ([]*EscalationRecord, error)

	// GetNextID returns the next available escalation ID.
	GetNextID(ctx context.Context) (string, error)
}

// Precondition is the state a writer observed at load time.
type Precondition struct {
	Status     string
	AssignedTo string // empty means unassigned
	NoteCount  int    // notes loaded; escalation.Notes[NoteCount:] are new
}

// EscalationRecord represents an escalation as stored in persistence.
type EscalationRecord struct {
	ID         string
	ContentRef string
	Level      string // 'low', 'medium', 'high', 'critical'
	Reason     string
	Status     string // 'pending', 'in-progress', 'resolved'
	AssignedTo string // Empty string means null
	DetectedAt time.Time
	ResolvedAt *time.Time // nil means null
	Notes      []*EscalationNoteRecord
}

// EscalationNoteRecord is one row of an escalation's notes journal.
// Rows are never updated or deleted.
type EscalationNoteRecord struct {
	ID        string
	Author    string
	Text      string
	Kind      string // 'annotation', 'resolution'
	CreatedAt time.Time
}

// EscalationFilters contains filter options for querying escalations.
type EscalationFilters struct {
	Status     string
	Level      string
	AssignedTo string
}
