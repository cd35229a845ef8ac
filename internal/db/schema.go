package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for fresh kiln installs.
// It reflects the state after every migration in migrations.go.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository tests
// load it through GetSchemaSQL() instead of declaring their own tables, so a
// repository that references a missing column fails with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration to migrations.go
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Orders (a customer commission)
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'cancelled')) DEFAULT 'pending',
	due_date TEXT,
	timeline_date TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

-- Order details (pieces: one line item of a piece type and quantity)
CREATE TABLE IF NOT EXISTS order_details (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	piece_type TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK(quantity > 0),
	completed_quantity INTEGER NOT NULL DEFAULT 0 CHECK(completed_quantity >= 0 AND completed_quantity <= quantity),
	stage TEXT NOT NULL,
	stage_changed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details(order_id);

-- Tasks (scheduled slices of stage work)
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	order_detail_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK(quantity >= 0),
	estimated_hours REAL NOT NULL CHECK(estimated_hours >= 0),
	date TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pending', 'completed')) DEFAULT 'pending',
	is_late INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (order_detail_id) REFERENCES order_details(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tasks_date ON tasks(date);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_detail_type ON tasks(order_detail_id, task_type);

-- Availability (date-specific capacity overrides)
CREATE TABLE IF NOT EXISTS availability (
	date TEXT PRIMARY KEY,
	hours REAL NOT NULL CHECK(hours >= 0),
	notes TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Schedule locks (single-writer regeneration)
CREATE TABLE IF NOT EXISTS schedule_locks (
	name TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	holder TEXT NOT NULL,
	acquired_at DATETIME NOT NULL
);

-- Regeneration runs (audit trail)
CREATE TABLE IF NOT EXISTS regeneration_runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	result TEXT NOT NULL CHECK(result IN ('success', 'partial', 'failed', 'rejected')),
	tasks_created INTEGER NOT NULL DEFAULT 0,
	tasks_deleted INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	triggered_by TEXT
);

CREATE INDEX IF NOT EXISTS idx_regeneration_runs_started ON regeneration_runs(started_at);

-- Activity log (manual corrections)
CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_entity ON activity_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_activity_log_created ON activity_log(created_at);
`

// InitSchema brings the database up to the current schema. A fresh database
// gets SchemaSQL directly with every migration marked applied; an existing one
// runs its pending migrations.
func InitSchema(db *sql.DB) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if tableCount > 0 {
		return RunMigrations(db)
	}

	if _, err := db.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := createVersionTable(db); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
