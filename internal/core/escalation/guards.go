package escalation

import (
	"fmt"
	"strings"
)

// GuardResult represents the outcome of a guard evaluation.
// Kind carries the sentinel error for a refusal.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    error
}

// Error converts the guard result to an error if not allowed.
// The returned error wraps Kind.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.Kind == nil {
		return fmt.Errorf("%s", r.Reason)
	}
	return fmt.Errorf("%w: %s", r.Kind, r.Reason)
}

func deny(kind error, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...), Kind: kind}
}

// AssignContext provides context for assignment guards.
type AssignContext struct {
	EscalationID string
	Status       Status
	AssignedTo   string
	Actor        string
}

// AnnotateContext provides context for annotation guards.
type AnnotateContext struct {
	EscalationID string
	Status       Status
	Actor        string
	Text         string
}

// ResolveContext provides context for resolution guards.
type ResolveContext struct {
	EscalationID string
	Status       Status
	AssignedTo   string
	Actor        string
	Note         string
}

// CanAssign evaluates whether an actor can claim an escalation.
// Rules:
// - Actor must be set
// - Status must be "pending"; a claimed record stays with its owner
func CanAssign(ctx AssignContext) GuardResult {
	if strings.TrimSpace(ctx.Actor) == "" {
		return deny(ErrActorRequired, "cannot assign escalation %s without an actor", ctx.EscalationID)
	}

	switch ctx.Status {
	case StatusPending:
		return GuardResult{Allowed: true}
	case StatusInProgress:
		return deny(ErrAlreadyAssigned, "escalation %s is already assigned to %s", ctx.EscalationID, ctx.AssignedTo)
	default:
		return deny(ErrInvalidTransition, "can only assign pending escalations (current status: %s)", ctx.Status)
	}
}

// CanAnnotate evaluates whether a note can be appended.
// Rules:
// - Actor must be set
// - Status must not be "resolved"
// - Text must not be blank
func CanAnnotate(ctx AnnotateContext) GuardResult {
	if strings.TrimSpace(ctx.Actor) == "" {
		return deny(ErrActorRequired, "cannot annotate escalation %s without an actor", ctx.EscalationID)
	}
	if ctx.Status.IsTerminal() {
		return deny(ErrRecordClosed, "escalation %s is resolved; its notes are frozen", ctx.EscalationID)
	}
	if strings.TrimSpace(ctx.Text) == "" {
		return deny(ErrEmptyNote, "note for escalation %s is empty", ctx.EscalationID)
	}

	return GuardResult{Allowed: true}
}

// CanResolve evaluates whether an actor can close an escalation.
// Rules:
// - Status must be "in-progress" (pending records must be claimed first)
// - Actor must be the assignee
// - Resolution note must not be blank
func CanResolve(ctx ResolveContext) GuardResult {
	if ctx.Status != StatusInProgress {
		return deny(ErrInvalidTransition, "can only resolve in-progress escalations (current status: %s)", ctx.Status)
	}
	if ctx.Actor == "" || ctx.Actor != ctx.AssignedTo {
		return deny(ErrNotOwner, "escalation %s is assigned to %s, not %s", ctx.EscalationID, ctx.AssignedTo, ctx.Actor)
	}
	if strings.TrimSpace(ctx.Note) == "" {
		return deny(ErrEmptyResolution, "resolution note for escalation %s is empty", ctx.EscalationID)
	}

	return GuardResult{Allowed: true}
}
