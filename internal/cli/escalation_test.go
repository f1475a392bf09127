package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/peerline/internal/config"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 12, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"default window", "", now.Add(-7 * 24 * time.Hour), false},
		{"rfc3339", "2026-05-01T00:00:00Z", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), false},
		{"duration", "36h", now.Add(-36 * time.Hour), false},
		{"negative duration", "-1h", time.Time{}, true},
		{"garbage", "last tuesday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSince(tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSince(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolveActor(t *testing.T) {
	cfg := &config.Config{Actor: "alice"}

	if got := resolveActor("  bob ", cfg); got != "bob" {
		t.Errorf("flag actor = %q, want bob", got)
	}
	if got := resolveActor("", cfg); got != "alice" {
		t.Errorf("config actor = %q, want alice", got)
	}
}

func TestRequireActor(t *testing.T) {
	t.Cleanup(func() { globalActorID = "" })

	globalActorID = ""
	if _, err := requireActor(NewContext()); err == nil || !strings.Contains(err.Error(), "--actor") {
		t.Errorf("expected missing-actor error, got %v", err)
	}

	globalActorID = "carol"
	actor, err := requireActor(NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor != "carol" {
		t.Errorf("actor = %q, want carol", actor)
	}
}

func TestBootstrap_ExplicitConfig(t *testing.T) {
	t.Cleanup(func() { globalActorID = "" })
	t.Setenv(config.EnvActor, "")
	t.Setenv(config.EnvStoreDSN, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("actor: dana\nlog_level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := &cobra.Command{Use: "peerline"}
	cmd.Flags().String("config", path, "")
	cmd.Flags().String("actor", "", "")

	if err := Bootstrap(cmd); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if globalActorID != "dana" {
		t.Errorf("actor = %q, want dana", globalActorID)
	}
}

func TestBootstrap_MissingConfigFile(t *testing.T) {
	cmd := &cobra.Command{Use: "peerline"}
	cmd.Flags().String("config", filepath.Join(t.TempDir(), "absent.yaml"), "")
	cmd.Flags().String("actor", "", "")

	if err := Bootstrap(cmd); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestEscalationCmd_Subcommands(t *testing.T) {
	want := []string{"create", "show", "list", "assign", "note", "resolve", "resolved"}
	got := map[string]bool{}
	for _, c := range EscalationCmd().Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
