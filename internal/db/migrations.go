package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(tx *sql.Tx) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_escalations",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "append_only_escalation_notes",
		Up:      migrationV2,
	},
}

// SchemaVersion is the version a fresh SchemaSQL install corresponds to.
var SchemaVersion = migrations[len(migrations)-1].Version

// InitSchema brings a SQLite database up to the current schema.
// Fresh databases get SchemaSQL directly; existing ones run pending migrations.
func InitSchema(db *sql.DB) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if tableCount == 0 {
		var existing int
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='escalations'").Scan(&existing)
		if err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}
		if existing == 0 {
			return installFresh(db)
		}
	}

	return RunMigrations(db)
}

func installFresh(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema install: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := createVersionTable(tx); err != nil {
		return err
	}
	// Mark all migrations as applied for fresh installs
	for _, m := range migrations {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return tx.Commit()
}

func createVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations, one transaction each.
func RunMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if currentVersion > 0 {
		err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
		if err != nil {
			return fmt.Errorf("failed to get current schema version: %w", err)
		}
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}
		if err := createVersionTable(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the escalation and note tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS escalations (
			id TEXT PRIMARY KEY,
			content_ref TEXT NOT NULL,
			level TEXT NOT NULL CHECK(level IN ('low', 'medium', 'high', 'critical')),
			reason TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending', 'in-progress', 'resolved')) DEFAULT 'pending',
			assigned_to TEXT,
			detected_at DATETIME NOT NULL,
			resolved_at DATETIME,
			CHECK ((status = 'pending') = (assigned_to IS NULL)),
			CHECK ((status = 'resolved') = (resolved_at IS NOT NULL)),
			CHECK (resolved_at IS NULL OR resolved_at >= detected_at)
		);
		CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
		CREATE INDEX IF NOT EXISTS idx_escalations_assigned_to ON escalations(assigned_to);
		CREATE INDEX IF NOT EXISTS idx_escalations_resolved_at ON escalations(resolved_at);

		CREATE TABLE IF NOT EXISTS escalation_notes (
			id TEXT PRIMARY KEY,
			escalation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			author TEXT NOT NULL,
			text TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('annotation', 'resolution')),
			created_at DATETIME NOT NULL,
			UNIQUE (escalation_id, seq),
			FOREIGN KEY (escalation_id) REFERENCES escalations(id)
		);
	`)
	return err
}

// migrationV2 forbids rewriting or deleting journal rows.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TRIGGER IF NOT EXISTS escalation_notes_no_update
		BEFORE UPDATE ON escalation_notes
		BEGIN
			SELECT RAISE(ABORT, 'escalation notes are append-only');
		END;

		CREATE TRIGGER IF NOT EXISTS escalation_notes_no_delete
		BEFORE DELETE ON escalation_notes
		BEGIN
			SELECT RAISE(ABORT, 'escalation notes are append-only');
		END;
	`)
	return err
}
