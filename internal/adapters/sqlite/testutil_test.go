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
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/kiln/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// The pool is pinned to one connection because every :memory: connection
// is its own database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedOrder inserts a test order and returns its ID.
func seedOrder(t *testing.T, db *sql.DB, id, status, dueDate string) string {
	t.Helper()
	if id == "" {
		id = "ORD-001"
	}
	if status == "" {
		status = "pending"
	}
	var due any
	if dueDate != "" {
		due = dueDate
	}
	_, err := db.Exec("INSERT INTO orders (id, customer_name, status, due_date) VALUES (?, 'Test Customer', ?, ?)", id, status, due)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return id
}

// seedPiece inserts a test piece and returns its ID.
func seedPiece(t *testing.T, db *sql.DB, id, orderID, pieceType string, quantity, completed int, stage string) string {
	t.Helper()
	if id == "" {
		id = "PIECE-001"
	}
	if orderID == "" {
		orderID = "ORD-001"
	}
	if pieceType == "" {
		pieceType = "bowl"
	}
	if stage == "" {
		stage = "build"
	}
	_, err := db.Exec(
		"INSERT INTO order_details (id, order_id, piece_type, quantity, completed_quantity, stage) VALUES (?, ?, ?, ?, ?, ?)",
		id, orderID, pieceType, quantity, completed, stage,
	)
	if err != nil {
		t.Fatalf("failed to seed piece: %v", err)
	}
	return id
}

// seedTask inserts a test task and returns its ID.
func seedTask(t *testing.T, db *sql.DB, id, pieceID, taskType, date, status string, hours float64) string {
	t.Helper()
	if status == "" {
		status = "pending"
	}
	_, err := db.Exec(
		"INSERT INTO tasks (id, order_detail_id, task_type, quantity, estimated_hours, date, status) VALUES (?, ?, ?, 1, ?, ?, ?)",
		id, pieceID, taskType, hours, date, status,
	)
	if err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return id
}
