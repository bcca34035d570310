package recstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Schema version tracking:
// 1 - Base field columns
// 2 - Added pdf_data / pdf_filename attachment columns
// 3 - Added created_date / updated_date timestamp columns
const currentSchemaVersion = 3

// DefaultDownloadsDir is where exported attachments land when the caller
// gives no destination path.
const DefaultDownloadsDir = "downloads"

// Store provides durable storage for one record kind, backed by a
// single SQLite table declared by its Schema.
type Store struct {
	db        *sql.DB
	schema    Schema
	now       func() time.Time
	downloads string
	log       *logrus.Logger
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithClock overrides the timestamp source. Used by tests to make
// created_date / updated_date deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDownloadsDir overrides the default attachment export directory.
func WithDownloadsDir(dir string) Option {
	return func(s *Store) { s.downloads = dir }
}

// WithLogger overrides the store's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open creates or opens a SQLite database at the given path and ensures
// the schema's table exists at the current version.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Migrations are additive only: existing data is never dropped or
// rewritten. The composite search index is created best-effort - a
// failure there is logged and Open still succeeds.
//
// This function is idempotent - safe to call on every process start.
func Open(path string, schema Schema, opts ...Option) (*Store, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:        db,
		schema:    schema,
		now:       time.Now,
		downloads: DefaultDownloadsDir,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// Best-effort search index. Absence only affects speed, never
	// correctness, so a failure must not abort startup.
	if err := s.createSearchIndex(); err != nil {
		s.log.WithFields(logrus.Fields{
			"op":    "open",
			"table": schema.Table,
		}).WithError(err).Warn("search index creation failed; continuing without it")
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Schema returns the schema this store was opened with.
func (s *Store) Schema() Schema {
	return s.schema
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the table at the current version for fresh
// databases, or applies pending additive migrations to existing ones.
func (s *Store) applySchema() error {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		s.schema.Table,
	).Scan(&name)

	switch {
	case err == sql.ErrNoRows:
		// Fresh database: create the full current-version table and
		// stamp the version so no migration ever runs against it.
		if _, err := s.db.Exec(s.createTableSQL()); err != nil {
			return fmt.Errorf("create table %s: %w", s.schema.Table, err)
		}
		return s.setUserVersion(currentSchemaVersion)
	case err != nil:
		return fmt.Errorf("check table %s: %w", s.schema.Table, err)
	}

	return s.runMigrations()
}

// createTableSQL builds the full DDL for the current schema version.
func (s *Store) createTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.schema.Table)
	fmt.Fprintf(&b, "\t%s INTEGER PRIMARY KEY AUTOINCREMENT", colID)
	for _, f := range s.schema.Fields {
		fmt.Fprintf(&b, ",\n\t%s TEXT", f)
	}
	fmt.Fprintf(&b, ",\n\t%s BLOB", colPDFData)
	fmt.Fprintf(&b, ",\n\t%s TEXT", colPDFFilename)
	fmt.Fprintf(&b, ",\n\t%s TEXT", colCreated)
	fmt.Fprintf(&b, ",\n\t%s TEXT", colUpdated)
	b.WriteString("\n)")
	return b.String()
}

// runMigrations applies incremental additive migrations based on
// user_version. Column presence is probed only here, on the migration
// path, to tolerate databases deployed before version stamping existed.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	existing, err := s.tableColumns()
	if err != nil {
		return err
	}

	if version < 2 {
		if err := s.addColumnIfMissing(existing, colPDFData, "BLOB"); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
		if err := s.addColumnIfMissing(existing, colPDFFilename, "TEXT"); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	if version < 3 {
		if err := s.addColumnIfMissing(existing, colCreated, "TEXT"); err != nil {
			return fmt.Errorf("migrate to v3: %w", err)
		}
		if err := s.addColumnIfMissing(existing, colUpdated, "TEXT"); err != nil {
			return fmt.Errorf("migrate to v3: %w", err)
		}
	}

	return s.setUserVersion(currentSchemaVersion)
}

// tableColumns returns the set of existing column names for the table.
func (s *Store) tableColumns() (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", s.schema.Table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", s.schema.Table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info: %w", err)
	}
	return cols, nil
}

func (s *Store) addColumnIfMissing(existing map[string]bool, name, sqlType string) error {
	if existing[name] {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", s.schema.Table, name, sqlType)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("add column %s: %w", name, err)
	}
	existing[name] = true
	return nil
}

func (s *Store) setUserVersion(v int) error {
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// createSearchIndex creates the non-unique composite search index.
func (s *Store) createSearchIndex() error {
	if len(s.schema.IndexFields) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_search ON %s(%s)",
		s.schema.Table, s.schema.Table, strings.Join(s.schema.IndexFields, ", "),
	)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// opLog returns a logger pre-tagged with the operation and table, so
// every storage fault carries enough context to diagnose.
func (s *Store) opLog(op string) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"op":    op,
		"kind":  s.schema.Kind,
		"table": s.schema.Table,
	})
}
