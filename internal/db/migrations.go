package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_orders_details_and_tasks",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_availability_and_schedule_locks",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_regeneration_runs",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_activity_log",
		Up:      migrationV4,
	},
}

// LatestVersion returns the schema version after every migration.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return v, nil
}

func createVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
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

// RunMigrations executes all pending migrations, each in its own transaction.
func RunMigrations(db *sql.DB) error {
	if err := createVersionTable(db); err != nil {
		return err
	}

	currentVersion, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
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

// migrationV1 creates the order, order detail and task tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create core tables: %w", err)
	}
	return nil
}

// migrationV2 adds capacity overrides and the regeneration lock table.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS availability (
			date TEXT PRIMARY KEY,
			hours REAL NOT NULL CHECK(hours >= 0),
			notes TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS schedule_locks (
			name TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			holder TEXT NOT NULL,
			acquired_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create availability and lock tables: %w", err)
	}
	return nil
}

// migrationV3 adds the regeneration run audit table.
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create regeneration_runs table: %w", err)
	}
	return nil
}

// migrationV4 adds the activity log for manual corrections.
func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create activity_log table: %w", err)
	}
	return nil
}
