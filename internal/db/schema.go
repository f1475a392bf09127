package db

// SchemaSQL is the complete SQLite schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the SQLite schema. Repository tests
// load it through GetSchemaSQL() instead of hardcoding CREATE TABLE statements,
// so a column referenced by repository code but missing here fails immediately
// with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here (and PostgresSchemaSQL)
//  3. Bump SchemaVersion
const SchemaSQL = `
-- Escalations (flagged content tracked from detection to resolution)
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

-- Escalation notes (append-only journal)
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
`

// PostgresSchemaSQL is the PostgreSQL equivalent of SchemaSQL.
const PostgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS escalations (
	id TEXT PRIMARY KEY,
	content_ref TEXT NOT NULL,
	level TEXT NOT NULL CHECK (level IN ('low', 'medium', 'high', 'critical')),
	reason TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'resolved')),
	assigned_to TEXT,
	detected_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ,
	CHECK ((status = 'pending') = (assigned_to IS NULL)),
	CHECK ((status = 'resolved') = (resolved_at IS NOT NULL)),
	CHECK (resolved_at IS NULL OR resolved_at >= detected_at)
);

CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
CREATE INDEX IF NOT EXISTS idx_escalations_assigned_to ON escalations(assigned_to);
CREATE INDEX IF NOT EXISTS idx_escalations_resolved_at ON escalations(resolved_at);

CREATE TABLE IF NOT EXISTS escalation_notes (
	id TEXT PRIMARY KEY,
	escalation_id TEXT NOT NULL REFERENCES escalations(id),
	seq INTEGER NOT NULL,
	author TEXT NOT NULL,
	text TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('annotation', 'resolution')),
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (escalation_id, seq)
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
