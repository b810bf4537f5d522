package store

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion documents the schema generation this package
// creates from scratch. Manifold ships its full schema via createSchema
// on first open; pendingMigrations below exists only for forward-
// compatible additive changes in a later release, not for migrating
// pre-existing rows through structural rewrites.
const CurrentSchemaVersion = 1

// migration describes one forward-compatible column addition.
type migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists additive schema changes applied on every open,
// after createSchema. Empty for the initial release; this is where a
// future forward-compatible column addition would be listed.
var pendingMigrations = []migration{}

func runMigrations(db *sql.DB) error {
	if err := createSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS specs (
			spec_id          TEXT PRIMARY KEY,
			project          TEXT NOT NULL,
			boundary         TEXT NOT NULL,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			stage            TEXT NOT NULL,
			stages_completed TEXT NOT NULL DEFAULT '[]',
			requirements     TEXT NOT NULL DEFAULT '[]',
			tasks            TEXT NOT NULL DEFAULT '[]',
			decisions        TEXT NOT NULL DEFAULT '[]',
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL,
			patches          TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_specs_boundary ON specs(boundary)`,
		`CREATE INDEX IF NOT EXISTS idx_specs_stage ON specs(stage)`,
		`CREATE INDEX IF NOT EXISTS idx_specs_updated_at ON specs(updated_at DESC)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS specs_fts USING fts5(
			spec_id UNINDEXED,
			project,
			name,
			description,
			body
		)`,

		`CREATE TABLE IF NOT EXISTS sync_metadata (
			spec_id             TEXT PRIMARY KEY REFERENCES specs(spec_id),
			last_sync_timestamp DATETIME,
			last_sync_hash      TEXT NOT NULL DEFAULT '',
			remote_branch       TEXT NOT NULL DEFAULT '',
			sync_status         TEXT NOT NULL DEFAULT 'clean'
		)`,

		`CREATE TABLE IF NOT EXISTS sync_bases (
			hash    TEXT PRIMARY KEY,
			content TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS conflicts (
			id           TEXT PRIMARY KEY,
			spec_id      TEXT NOT NULL REFERENCES specs(spec_id),
			field_path   TEXT NOT NULL,
			local_value  TEXT,
			remote_value TEXT,
			base_value   TEXT,
			detected_at  DATETIME NOT NULL,
			status       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_spec ON conflicts(spec_id, status)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			id           TEXT PRIMARY KEY,
			spec_id      TEXT NOT NULL REFERENCES specs(spec_id),
			requester    TEXT NOT NULL,
			reviewer     TEXT NOT NULL,
			status       TEXT NOT NULL,
			comment      TEXT NOT NULL DEFAULT '',
			requested_at DATETIME NOT NULL,
			reviewed_at  DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_spec ON reviews(spec_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status)`,

		`CREATE TABLE IF NOT EXISTS workflow_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			spec_id    TEXT NOT NULL REFERENCES specs(spec_id),
			from_stage TEXT NOT NULL,
			to_stage   TEXT NOT NULL,
			actor      TEXT NOT NULL,
			timestamp  DATETIME NOT NULL,
			details    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_events_spec ON workflow_events(spec_id, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	row := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
	var name string
	return row.Scan(&name) == nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}
