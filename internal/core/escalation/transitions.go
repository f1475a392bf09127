package escalation

import (
	"fmt"
	"strings"
	"time"
)

// NewRecordParams is the detector output accepted by NewRecord.
type NewRecordParams struct {
	ID         string
	ContentRef string
	Level      Level
	Reason     string
}

// NewRecord builds the initial pending record. detectedAt is fixed here.
func NewRecord(p NewRecordParams, now time.Time) (*Record, error) {
	if _, err := ParseLevel(string(p.Level)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ContentRef) == "" {
		return nil, fmt.Errorf("content reference is required")
	}
	if strings.TrimSpace(p.Reason) == "" {
		return nil, fmt.Errorf("reason is required")
	}

	return &Record{
		ID:         p.ID,
		ContentRef: p.ContentRef,
		Level:      p.Level,
		Reason:     p.Reason,
		Status:     InitialStatus(),
		DetectedAt: now,
	}, nil
}

// InitialStatus returns the status every new escalation starts in.
func InitialStatus() Status {
	return StatusPending
}

// ApplyAssign claims a pending record for actor.
// The input record is left untouched; the returned record is a copy.
func ApplyAssign(r *Record, actor string) (*Record, error) {
	guard := CanAssign(AssignContext{
		EscalationID: r.ID,
		Status:       r.Status,
		AssignedTo:   r.AssignedTo,
		Actor:        actor,
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	next := r.Clone()
	next.Status = StatusInProgress
	next.AssignedTo = actor
	return next, nil
}

// ApplyAnnotate appends an ordinary note.
func ApplyAnnotate(r *Record, actor, text, noteID string, now time.Time) (*Record, error) {
	guard := CanAnnotate(AnnotateContext{
		EscalationID: r.ID,
		Status:       r.Status,
		Actor:        actor,
		Text:         text,
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	next := r.Clone()
	next.Notes = append(next.Notes, Note{
		ID:        noteID,
		Author:    actor,
		Text:      strings.TrimSpace(text),
		Kind:      NoteKindAnnotation,
		CreatedAt: now,
	})
	return next, nil
}

// ApplyResolve closes an in-progress record owned by actor and appends the
// resolution note. resolvedAt is clamped to detectedAt.
func ApplyResolve(r *Record, actor, note, noteID string, now time.Time) (*Record, error) {
	guard := CanResolve(ResolveContext{
		EscalationID: r.ID,
		Status:       r.Status,
		AssignedTo:   r.AssignedTo,
		Actor:        actor,
		Note:         note,
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	resolvedAt := now
	if resolvedAt.Before(r.DetectedAt) {
		resolvedAt = r.DetectedAt
	}

	next := r.Clone()
	next.Status = StatusResolved
	next.ResolvedAt = &resolvedAt
	next.Notes = append(next.Notes, Note{
		ID:        noteID,
		Author:    actor,
		Text:      ResolutionPrefix + strings.TrimSpace(note),
		Kind:      NoteKindResolution,
		CreatedAt: resolvedAt,
	})
	return next, nil
}

// CheckInvariants reports the first broken record invariant, if any.
func CheckInvariants(r *Record) error {
	switch r.Status {
	case StatusPending:
		if r.AssignedTo != "" {
			return fmt.Errorf("escalation %s is pending but assigned to %s", r.ID, r.AssignedTo)
		}
	case StatusInProgress, StatusResolved:
		if r.AssignedTo == "" {
			return fmt.Errorf("escalation %s is %s without an assignee", r.ID, r.Status)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}

	if (r.ResolvedAt != nil) != (r.Status == StatusResolved) {
		return fmt.Errorf("escalation %s: resolved_at must be set exactly when resolved", r.ID)
	}
	if r.ResolvedAt != nil && r.ResolvedAt.Before(r.DetectedAt) {
		return fmt.Errorf("escalation %s resolved before it was detected", r.ID)
	}
	return nil
}

// IsAppendOf reports whether next's notes extend prev's notes unchanged.
func IsAppendOf(prev, next []Note) bool {
	if len(next) < len(prev) {
		return false
	}
	for i := range prev {
		p, n := prev[i], next[i]
		if p.ID != n.ID || p.Author != n.Author || p.Text != n.Text || p.Kind != n.Kind || !p.CreatedAt.Equal(n.CreatedAt) {
			return false
		}
	}
	return true
}
