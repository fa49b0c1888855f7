// Package database provides SQLite and PostgreSQL persistence for campaigns,
// generation settings, and generated things.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/milocarbol/dndcampaign/internal/campaign"
	"github.com/milocarbol/dndcampaign/internal/catalog"
	"github.com/milocarbol/dndcampaign/internal/logger"
)

// Database wraps the SQL connection and provides persistence operations.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the database selected by cfg.Driver and applies the schema.
func OpenWithConfig(cfg Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	dt, _ := cfg.DialectType()
	dialect := NewDialect(dt)

	if dt == DialectSQLite {
		// Ensure directory exists
		dir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dt == DialectPostgres {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Database opened", "driver", dialect.DriverName())
	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// ImportSettings loads generation settings into the database, attaching weight
// presets to the given campaign.
func (d *Database) ImportSettings(settings *catalog.Settings, campaignID int64) error {
	return catalog.Import(settings, campaignID, d)
}

func (d *Database) exec(query string, args ...any) (sql.Result, error) {
	return d.db.Exec(d.qb.Build(query), args...)
}

func (d *Database) query(query string, args ...any) (*sql.Rows, error) {
	return d.db.Query(d.qb.Build(query), args...)
}

func (d *Database) queryRow(query string, args ...any) *sql.Row {
	return d.db.QueryRow(d.qb.Build(query), args...)
}

// insert runs an INSERT and returns the new row's id.
func (d *Database) insert(query string, args ...any) (int64, error) {
	return d.insertInto(d.db, query, args...)
}

// wrap maps driver errors onto the campaign sentinels.
func (d *Database) wrap(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", what, campaign.ErrNotFound)
	case d.dialect.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, campaign.ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// mustAffect turns an UPDATE that touched no rows into ErrNotFound.
func (d *Database) mustAffect(what string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, campaign.ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// migrate creates the database schema if it doesn't exist.
func (d *Database) migrate() error {
	pk := d.dialect.PrimaryKey()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id ` + pk + `,
			name TEXT NOT NULL UNIQUE,
			is_active INTEGER NOT NULL DEFAULT 0
		)`,

		// Attribute definitions per kind
		`CREATE TABLE IF NOT EXISTS attributes (
			id ` + pk + `,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			display_in_summary INTEGER NOT NULL DEFAULT 0,
			editable INTEGER NOT NULL DEFAULT 1,
			is_thing INTEGER NOT NULL DEFAULT 0,
			value_kind TEXT NOT NULL DEFAULT 'free_text'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attributes_kind_name ON attributes(LOWER(kind), LOWER(name))`,

		`CREATE TABLE IF NOT EXISTS things (
			id ` + pk + `,
			campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			background TEXT NOT NULL DEFAULT '',
			current_state TEXT NOT NULL DEFAULT '',
			is_bookmarked INTEGER NOT NULL DEFAULT 0,
			UNIQUE(campaign_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_things_campaign_kind ON things(campaign_id, kind)`,

		`CREATE TABLE IF NOT EXISTS attribute_values (
			thing_id BIGINT NOT NULL REFERENCES things(id) ON DELETE CASCADE,
			attribute_id BIGINT NOT NULL REFERENCES attributes(id) ON DELETE CASCADE,
			value TEXT NOT NULL,
			PRIMARY KEY (thing_id, attribute_id)
		)`,

		`CREATE TABLE IF NOT EXISTS random_attributes (
			id ` + pk + `,
			thing_id BIGINT NOT NULL REFERENCES things(id) ON DELETE CASCADE,
			text TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS thing_children (
			parent_id BIGINT NOT NULL REFERENCES things(id) ON DELETE CASCADE,
			child_id BIGINT NOT NULL REFERENCES things(id) ON DELETE CASCADE,
			PRIMARY KEY (parent_id, child_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_thing_children_child ON thing_children(child_id)`,

		// Randomizers
		`CREATE TABLE IF NOT EXISTS randomizer_attributes (
			id ` + pk + `,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			concatenate_results INTEGER NOT NULL DEFAULT 0,
			can_randomize_later INTEGER NOT NULL DEFAULT 0,
			must_be_unique INTEGER NOT NULL DEFAULT 0,
			max_options_to_use INTEGER NOT NULL DEFAULT 1,
			category_parameter TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_randomizer_attributes_kind_name ON randomizer_attributes(LOWER(kind), LOWER(name))`,

		`CREATE TABLE IF NOT EXISTS randomizer_options (
			id ` + pk + `,
			attribute_id BIGINT NOT NULL REFERENCES randomizer_attributes(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_randomizer_options_attribute ON randomizer_options(attribute_id)`,

		`CREATE TABLE IF NOT EXISTS randomizer_categories (
			id ` + pk + `,
			attribute_id BIGINT NOT NULL REFERENCES randomizer_attributes(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			show INTEGER NOT NULL DEFAULT 1,
			can_combine_with_self INTEGER NOT NULL DEFAULT 0,
			max_options_to_use INTEGER NOT NULL DEFAULT 1,
			can_randomize_later INTEGER NOT NULL DEFAULT 0,
			must_be_unique INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_randomizer_categories_name ON randomizer_categories(attribute_id, LOWER(name))`,

		`CREATE TABLE IF NOT EXISTS category_use_values_from (
			category_id BIGINT NOT NULL REFERENCES randomizer_categories(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source_name TEXT NOT NULL,
			PRIMARY KEY (category_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS category_options (
			id ` + pk + `,
			category_id BIGINT NOT NULL REFERENCES randomizer_categories(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_category_options_category ON category_options(category_id)`,

		`CREATE TABLE IF NOT EXISTS weight_presets (
			id ` + pk + `,
			campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			attribute_name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS weights (
			preset_id BIGINT NOT NULL REFERENCES weight_presets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			weight INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (preset_id, position)
		)`,

		// Generator templates
		`CREATE TABLE IF NOT EXISTS generator_objects (
			id ` + pk + `,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			inherit_settings_from BIGINT REFERENCES generator_objects(id) ON DELETE SET NULL,
			attribute_for_container TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_generator_objects_kind_name ON generator_objects(LOWER(kind), LOWER(name))`,

		`CREATE TABLE IF NOT EXISTS generator_contains (
			id ` + pk + `,
			generator_object_id BIGINT NOT NULL REFERENCES generator_objects(id) ON DELETE CASCADE,
			contained_id BIGINT NOT NULL REFERENCES generator_objects(id) ON DELETE CASCADE,
			percent_chance_for_one INTEGER NOT NULL DEFAULT 0,
			min_objects INTEGER NOT NULL DEFAULT 0,
			max_objects INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS generator_mappings (
			id ` + pk + `,
			generator_object_id BIGINT NOT NULL REFERENCES generator_objects(id) ON DELETE CASCADE,
			field_name TEXT NOT NULL DEFAULT '',
			randomizer_attribute_id BIGINT REFERENCES randomizer_attributes(id) ON DELETE CASCADE,
			category_id BIGINT REFERENCES randomizer_categories(id) ON DELETE CASCADE
		)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
