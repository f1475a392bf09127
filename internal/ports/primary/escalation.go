// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which screens, dashboards and the CLI drive the core.
package primary

import (
	"context"
	"time"
)

// EscalationService defines the primary port for the escalation lifecycle.
// Callers are trusted to have authorized the actor; the service only enforces
// ownership and state rules of the escalation itself.
type EscalationService interface {
	// CreateEscalation records detector or moderator output as a pending escalation.
	CreateEscalation(ctx context.Context, req CreateEscalationRequest) (*Escalation, error)

	// GetEscalation loads an escalation by ID.
	GetEscalation(ctx context.Context, escalationID string) (*Escalation, error)

	// ListEscalations lists escalations with optional filters.
	ListEscalations(ctx context.Context, filters EscalationFilters) ([]*Escalation, error)

	// ListResolved lists escalations resolved at or after since, for analytics consumers.
	ListResolved(ctx context.Context, since time.Time) ([]*ResolvedEscalation, error)

	// Assign claims a pending escalation for actor.
	Assign(ctx context.Context, escalationID, actor string) (*Escalation, error)

	// Annotate appends a note while the escalation is unresolved.
	Annotate(ctx context.Context, escalationID, actor, text string) (*Escalation, error)

	// Resolve closes an escalation owned by actor with a resolution note.
	Resolve(ctx context.Context, escalationID, actor, resolutionNote string) (*Escalation, error)

	// ElapsedTime returns the response time of an escalation.
	ElapsedTime(escalation *Escalation) time.Duration
}

// Escalation represents an escalation entity at the port boundary.
type Escalation struct {
	ID         string
	ContentRef string
	Level      string // 'low', 'medium', 'high', 'critical'
	Reason     string
	Status     string // 'pending', 'in-progress', 'resolved'
	AssignedTo string // May be empty
	DetectedAt time.Time
	ResolvedAt *time.Time // nil until resolved
	Notes      []*EscalationNote
}

// EscalationNote is one entry of the notes journal.
type EscalationNote struct {
	ID        string
	Author    string
	Text      string
	Kind      string // 'annotation', 'resolution'
	CreatedAt time.Time
}

// ResolvedEscalation is the analytics view of a closed escalation.
type ResolvedEscalation struct {
	ID           string
	Level        string
	AssignedTo   string
	DetectedAt   time.Time
	ResolvedAt   time.Time
	ResponseTime time.Duration
}

// CreateEscalationRequest contains the detector output for a new escalation.
type CreateEscalationRequest struct {
	ContentRef string
	Level      string
	Reason     string
}

// EscalationFilters contains filter options for listing escalations.
type EscalationFilters struct {
	Status     string
	Level      string
	AssignedTo string
}

// Escalation status constants
const (
	EscalationStatusPending    = "pending"
	EscalationStatusInProgress = "in-progress"
	EscalationStatusResolved   = "resolved"
)
