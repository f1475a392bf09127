// Package wire provides dependency injection for peerline.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"

	cliadapter "github.com/example/peerline/internal/adapters/cli"
	"github.com/example/peerline/internal/adapters/postgres"
	"github.com/example/peerline/internal/adapters/sqlite"
	"github.com/example/peerline/internal/app"
	"github.com/example/peerline/internal/config"
	"github.com/example/peerline/internal/db"
	"github.com/example/peerline/internal/ports/primary"
	"github.com/example/peerline/internal/ports/secondary"
)

var (
	cfg               *config.Config
	escalationService primary.EscalationService
	once              sync.Once
)

// Configure sets the configuration used when services are first built.
// Calls after the first service lookup have no effect.
func Configure(c *config.Config) {
	cfg = c
}

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	once.Do(initServices)
	return escalationService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	logger := slog.Default()

	if cfg == nil {
		wd, _ := os.Getwd()
		loaded, err := config.Load(wd)
		if err != nil {
			fatal(logger, "failed to load config", err)
		}
		cfg = loaded
	}

	database, err := db.Open(context.Background(), cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		fatal(logger, "failed to initialize database", err)
	}

	escalationService = app.NewEscalationService(newEscalationRepository(cfg.Store.Driver, database, logger)).
		WithLogger(logger)
}

func newEscalationRepository(driver string, database *sql.DB, logger *slog.Logger) secondary.EscalationRepository {
	if driver == db.DriverPostgres {
		return postgres.NewEscalationRepository(database, logger)
	}
	return sqlite.NewEscalationRepository(database, logger)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

// EscalationAdapter returns a new EscalationAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func EscalationAdapter() *cliadapter.EscalationAdapter {
	return EscalationAdapterWithOutput(os.Stdout)
}

// EscalationAdapterWithOutput returns a new EscalationAdapter writing to the given output.
func EscalationAdapterWithOutput(out io.Writer) *cliadapter.EscalationAdapter {
	return cliadapter.NewEscalationAdapter(EscalationService(), out)
}
