package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/peerline/internal/ports/primary"
	"github.com/example/peerline/internal/wire"
)

// defaultResolvedWindow is how far back `escalation resolved` looks without --since.
const defaultResolvedWindow = 7 * 24 * time.Hour

var escalationCmd = &cobra.Command{
	Use:     "escalation",
	Aliases: []string{"esc"},
	Short:   "Manage escalations",
	Long:    "Create, claim, annotate and resolve escalations of flagged content",
}

var escalationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new pending escalation",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		level, _ := cmd.Flags().GetString("level")
		reason, _ := cmd.Flags().GetString("reason")

		return wire.EscalationAdapter().Create(NewContext(), content, level, reason)
	},
}

var escalationShowCmd = &cobra.Command{
	Use:   "show [escalation-id]",
	Short: "Show escalation details and notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.EscalationAdapter().Show(NewContext(), args[0])
		return err
	},
}

var escalationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		level, _ := cmd.Flags().GetString("level")
		assignee, _ := cmd.Flags().GetString("assignee")

		return wire.EscalationAdapter().List(NewContext(), primary.EscalationFilters{
			Status:     status,
			Level:      level,
			AssignedTo: assignee,
		})
	},
}

var escalationAssignCmd = &cobra.Command{
	Use:   "assign [escalation-id]",
	Short: "Claim a pending escalation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		actor, err := requireActor(ctx)
		if err != nil {
			return err
		}
		return wire.EscalationAdapter().Assign(ctx, args[0], actor)
	},
}

var escalationNoteCmd = &cobra.Command{
	Use:   "note [escalation-id] [text]",
	Short: "Append a note to an open escalation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		actor, err := requireActor(ctx)
		if err != nil {
			return err
		}
		return wire.EscalationAdapter().Annotate(ctx, args[0], actor, strings.Join(args[1:], " "))
	},
}

var escalationResolveCmd = &cobra.Command{
	Use:   "resolve [escalation-id] [resolution-note]",
	Short: "Resolve an escalation you own",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		actor, err := requireActor(ctx)
		if err != nil {
			return err
		}
		return wire.EscalationAdapter().Resolve(ctx, args[0], actor, strings.Join(args[1:], " "))
	},
}

var escalationResolvedCmd = &cobra.Command{
	Use:   "resolved",
	Short: "Report response times of recently resolved escalations",
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceFlag, _ := cmd.Flags().GetString("since")

		since, err := parseSince(sinceFlag, time.Now())
		if err != nil {
			return err
		}
		return wire.EscalationAdapter().Resolved(NewContext(), since)
	},
}

// parseSince accepts an RFC3339 timestamp or a duration counted back from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now.Add(-defaultResolvedWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("--since must be an RFC3339 time or a positive duration, got %q", value)
	}
	return now.Add(-d), nil
}

func init() {
	// escalation create flags
	escalationCreateCmd.Flags().StringP("content", "c", "", "Reference to the flagged content (required)")
	escalationCreateCmd.Flags().StringP("level", "l", "", "Severity: low|medium|high|critical (required)")
	escalationCreateCmd.Flags().StringP("reason", "r", "", "Why the content was flagged (required)")
	escalationCreateCmd.MarkFlagRequired("content")
	escalationCreateCmd.MarkFlagRequired("level")
	escalationCreateCmd.MarkFlagRequired("reason")

	// escalation list flags
	escalationListCmd.Flags().StringP("status", "s", "", "Filter by status (pending|in-progress|resolved)")
	escalationListCmd.Flags().StringP("level", "l", "", "Filter by level")
	escalationListCmd.Flags().StringP("assignee", "a", "", "Filter by assigned moderator")

	// escalation resolved flags
	escalationResolvedCmd.Flags().String("since", "", "RFC3339 time or duration such as 24h (default 168h)")

	// Register subcommands
	escalationCmd.AddCommand(escalationCreateCmd)
	escalationCmd.AddCommand(escalationShowCmd)
	escalationCmd.AddCommand(escalationListCmd)
	escalationCmd.AddCommand(escalationAssignCmd)
	escalationCmd.AddCommand(escalationNoteCmd)
	escalationCmd.AddCommand(escalationResolveCmd)
	escalationCmd.AddCommand(escalationResolvedCmd)
}

// EscalationCmd returns the escalation command
func EscalationCmd() *cobra.Command {
	return escalationCmd
}
