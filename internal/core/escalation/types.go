// Package escalation contains the pure business logic for the escalation lifecycle.
// This is part of the Functional Core - no I/O, only pure functions over records.
package escalation

import (
	"fmt"
	"time"
)

// Level is the severity assigned at detection time.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists every severity, lowest first.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// ParseLevel converts a stored or user-supplied string into a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Status is the lifecycle state of an escalation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// ParseStatus converts a stored or user-supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusResolved:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

// NoteKind distinguishes ordinary annotations from the closing note.
type NoteKind string

const (
	NoteKindAnnotation NoteKind = "annotation"
	NoteKindResolution NoteKind = "resolution"
)

// ResolutionPrefix marks the terminal note written by a resolve.
const ResolutionPrefix = "Resolution: "

// Note is one immutable journal entry.
type Note struct {
	ID        string
	Author    string
	Text      string
	Kind      NoteKind
	CreatedAt time.Time
}

// Record is an escalation as the core sees it.
// Level, Reason, ContentRef and DetectedAt never change after creation.
type Record struct {
	ID         string
	ContentRef string
	Level      Level
	Reason     string
	Status     Status
	AssignedTo string     // empty while pending
	DetectedAt time.Time
	ResolvedAt *time.Time // set only when resolved
	Notes      []Note
}

// Clone returns a deep copy so transitions never alias the caller's record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	c.Notes = append([]Note(nil), r.Notes...)
	return &c
}
