// Package cli provides CLI commands for peerline.
package cli

import (
	gocontext "context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/peerline/internal/config"
	"github.com/example/peerline/internal/ctxutil"
	"github.com/example/peerline/internal/wire"
)

// globalActorID stores the acting moderator for the current CLI invocation.
// Set once at startup by Bootstrap.
var globalActorID string

// Bootstrap loads configuration, installs the logger and resolves the actor.
// Should be called once at CLI startup in PersistentPreRunE.
func Bootstrap(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	actor, _ := cmd.Flags().GetString("actor")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		wd, _ := os.Getwd()
		cfg, err = config.Load(wd)
	}
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	wire.Configure(cfg)

	globalActorID = resolveActor(actor, cfg)
	return nil
}

// resolveActor prefers the --actor flag over the configured actor.
func resolveActor(flag string, cfg *config.Config) string {
	if a := strings.TrimSpace(flag); a != "" {
		return a
	}
	return cfg.Actor
}

// NewContext creates a context.Background() with the current actor embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() gocontext.Context {
	ctx := gocontext.Background()
	if globalActorID != "" {
		return ctxutil.WithActor(ctx, globalActorID)
	}
	return ctx
}

// requireActor returns the actor carried by ctx or an error naming how to set one.
func requireActor(ctx gocontext.Context) (string, error) {
	actor, ok := ctxutil.Actor(ctx)
	if !ok {
		return "", fmt.Errorf("no actor set: pass --actor, set actor in .peerline/config.yaml, or export %s", config.EnvActor)
	}
	return actor, nil
}
