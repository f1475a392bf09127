// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/example/peerline/internal/ports/primary"
)

// EscalationAdapter is a thin adapter that translates CLI operations to EscalationService calls.
type EscalationAdapter struct {
	service primary.EscalationService
	out     io.Writer
}

// NewEscalationAdapter creates a new EscalationAdapter with the given service.
func NewEscalationAdapter(service primary.EscalationService, out io.Writer) *EscalationAdapter {
	return &EscalationAdapter{
		service: service,
		out:     out,
	}
}

// Create records a new pending escalation.
func (a *EscalationAdapter) Create(ctx context.Context, contentRef, level, reason string) error {
	esc, err := a.service.CreateEscalation(ctx, primary.CreateEscalationRequest{
		ContentRef: contentRef,
		Level:      level,
		Reason:     reason,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Created escalation %s [%s] for %s\n", esc.ID, levelLabel(esc.Level), esc.ContentRef)
	return nil
}

// Show displays details for a single escalation including its notes.
func (a *EscalationAdapter) Show(ctx context.Context, escalationID string) (*primary.Escalation, error) {
	esc, err := a.service.GetEscalation(ctx, escalationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	fmt.Fprintf(a.out, "\nEscalation: %s\n", esc.ID)
	fmt.Fprintf(a.out, "Content:  %s\n", esc.ContentRef)
	fmt.Fprintf(a.out, "Level:    %s\n", levelLabel(esc.Level))
	fmt.Fprintf(a.out, "Reason:   %s\n", esc.Reason)
	fmt.Fprintf(a.out, "Status:   %s\n", statusLabel(esc.Status))
	if esc.AssignedTo != "" {
		fmt.Fprintf(a.out, "Assigned: %s\n", esc.AssignedTo)
	}
	fmt.Fprintf(a.out, "Detected: %s\n", esc.DetectedAt.Format(time.RFC3339))
	if esc.ResolvedAt != nil {
		fmt.Fprintf(a.out, "Resolved: %s\n", esc.ResolvedAt.Format(time.RFC3339))
		fmt.Fprintf(a.out, "Response: %s\n", FormatResponseTime(a.service.ElapsedTime(esc)))
	} else {
		fmt.Fprintf(a.out, "Open for: %s\n", FormatResponseTime(a.service.ElapsedTime(esc)))
	}

	if len(esc.Notes) > 0 {
		fmt.Fprintln(a.out, "\nNotes:")
		for _, n := range esc.Notes {
			fmt.Fprintf(a.out, "  [%s] %s: %s\n", n.CreatedAt.Format(time.RFC3339), n.Author, n.Text)
		}
	}
	fmt.Fprintln(a.out)

	return esc, nil
}

// List lists escalations with optional filters.
func (a *EscalationAdapter) List(ctx context.Context, filters primary.EscalationFilters) error {
	escalations, err := a.service.ListEscalations(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list escalations: %w", err)
	}

	if len(escalations) == 0 {
		fmt.Fprintln(a.out, "No escalations found")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLEVEL\tSTATUS\tASSIGNEE\tDETECTED\tCONTENT")
	for _, e := range escalations {
		assignee := e.AssignedTo
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Level, e.Status, assignee, e.DetectedAt.Format(time.RFC3339), e.ContentRef)
	}
	return w.Flush()
}

// Assign claims an escalation for actor.
func (a *EscalationAdapter) Assign(ctx context.Context, escalationID, actor string) error {
	esc, err := a.service.Assign(ctx, escalationID, actor)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Escalation %s assigned to %s\n", esc.ID, esc.AssignedTo)
	return nil
}

// Annotate appends a note to an escalation.
func (a *EscalationAdapter) Annotate(ctx context.Context, escalationID, actor, text string) error {
	esc, err := a.service.Annotate(ctx, escalationID, actor, text)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Note added to %s (%d total)\n", esc.ID, len(esc.Notes))
	return nil
}

// Resolve closes an escalation with a resolution note.
func (a *EscalationAdapter) Resolve(ctx context.Context, escalationID, actor, note string) error {
	esc, err := a.service.Resolve(ctx, escalationID, actor, note)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Escalation %s resolved in %s\n", esc.ID, FormatResponseTime(a.service.ElapsedTime(esc)))
	return nil
}

// Resolved prints the response-time report for escalations resolved since the given time.
func (a *EscalationAdapter) Resolved(ctx context.Context, since time.Time) error {
	resolved, err := a.service.ListResolved(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to list resolved escalations: %w", err)
	}

	if len(resolved) == 0 {
		fmt.Fprintln(a.out, "No resolved escalations")
		return nil
	}

	var total time.Duration
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLEVEL\tASSIGNEE\tRESOLVED\tRESPONSE")
	for _, r := range resolved {
		total += r.ResponseTime
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Level, r.AssignedTo, r.ResolvedAt.Format(time.RFC3339), FormatResponseTime(r.ResponseTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	mean := total / time.Duration(len(resolved))
	fmt.Fprintf(a.out, "\n%d resolved, mean response %s\n", len(resolved), FormatResponseTime(mean))
	return nil
}

// FormatResponseTime renders d as "Xh Ym", truncated to the minute.
func FormatResponseTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func levelLabel(level string) string {
	switch level {
	case "critical":
		return color.New(color.FgRed, color.Bold).Sprint(level)
	case "high":
		return color.New(color.FgRed).Sprint(level)
	case "medium":
		return color.New(color.FgYellow).Sprint(level)
	default:
		return level
	}
}

func statusLabel(status string) string {
	switch status {
	case primary.EscalationStatusPending:
		return color.New(color.FgYellow).Sprint(status)
	case primary.EscalationStatusInProgress:
		return color.New(color.FgCyan).Sprint(status)
	case primary.EscalationStatusResolved:
		return color.New(color.FgGreen).Sprint(status)
	default:
		return status
	}
}
