// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/peerline/internal/db"
	"github.com/example/peerline/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// The pool is pinned to one connection so every query sees the same database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

var seedDetectedAt = time.Date(2026, 5, 11, 14, 30, 0, 0, time.UTC)

// seedEscalation inserts a pending escalation through the repository and returns it.
func seedEscalation(t *testing.T, repo secondary.EscalationRepository, id, level string, detectedAt time.Time) *secondary.EscalationRecord {
	t.Helper()
	if id == "" {
		id = "ESC-001"
	}
	if level == "" {
		level = "critical"
	}
	if detectedAt.IsZero() {
		detectedAt = seedDetectedAt
	}
	record := &secondary.EscalationRecord{
		ID:         id,
		ContentRef: "post/" + id,
		Level:      level,
		Reason:     "flagged by classifier",
		Status:     "pending",
		DetectedAt: detectedAt,
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("failed to seed escalation: %v", err)
	}
	return record
}
