package escalation_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/example/peerline/internal/core/escalation"
)

var (
	propActors = []string{"alice", "bob", "carol", ""}
	propTexts  = []string{"checked in", "", "   ", "Escalated to crisis line."}
)

// step decodes one generated integer into an operation and applies it.
func step(r *escalation.Record, code, i int, now time.Time) (*escalation.Record, error) {
	actor := propActors[(code/3)%len(propActors)]
	text := propTexts[(code/12)%len(propTexts)]
	noteID := fmt.Sprintf("note-%d", i)

	switch code % 3 {
	case 0:
		return escalation.ApplyAssign(r, actor)
	case 1:
		return escalation.ApplyAnnotate(r, actor, text, noteID, now)
	default:
		return escalation.ApplyResolve(r, actor, text, noteID, now)
	}
}

// TestLifecycleInvariants verifies record invariants survive any operation sequence.
// Property: after every step, CheckInvariants holds, notes only grow, failed
// steps change nothing, and resolved is only reached through in-progress.
func TestLifecycleInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	detected := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	properties.Property("operation sequences preserve record invariants", prop.ForAll(
		func(codes []int) bool {
			r, err := escalation.NewRecord(escalation.NewRecordParams{
				ID:         "ESC-001",
				ContentRef: "post/1",
				Level:      escalation.LevelHigh,
				Reason:     "flagged",
			}, detected)
			if err != nil {
				return false
			}

			sawInProgress := false
			for i, code := range codes {
				now := detected.Add(time.Duration(i) * time.Minute)
				next, err := step(r, code, i, now)
				if err != nil {
					continue
				}
				if err := escalation.CheckInvariants(next); err != nil {
					return false
				}
				if !escalation.IsAppendOf(r.Notes, next.Notes) {
					return false
				}
				if next.Level != r.Level || next.Reason != r.Reason || !next.DetectedAt.Equal(r.DetectedAt) {
					return false
				}
				if r.Status == escalation.StatusResolved && len(next.Notes) != len(r.Notes) {
					return false
				}
				if next.Status == escalation.StatusInProgress {
					sawInProgress = true
				}
				if next.Status == escalation.StatusResolved && !sawInProgress {
					return false
				}
				r = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 47)),
	))

	properties.Property("failed steps leave the record unchanged", prop.ForAll(
		func(codes []int) bool {
			r, _ := escalation.NewRecord(escalation.NewRecordParams{
				ID:         "ESC-002",
				ContentRef: "post/2",
				Level:      escalation.LevelLow,
				Reason:     "flagged",
			}, detected)

			for i, code := range codes {
				before := r.Clone()
				next, err := step(r, code, i, detected.Add(time.Duration(i)*time.Second))
				if err != nil {
					if r.Status != before.Status || r.AssignedTo != before.AssignedTo || len(r.Notes) != len(before.Notes) {
						return false
					}
					continue
				}
				r = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 47)),
	))

	properties.TestingRun(t)
}
