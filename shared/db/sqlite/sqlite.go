package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dfryer1193/micropub/shared/db"
	_ "modernc.org/sqlite"
)

const (
	// defaultPath is where the journal lives when neither the caller nor SQLITE_DB_PATH names one
	defaultPath = "./micropub.db"

	defaultBusyTimeout = 5 * time.Second
)

// SQLiteConfig describes how to open the journal database.
type SQLiteConfig struct {
	Path string
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
	// ReadOnly opens an existing database without running migrations.
	ReadOnly bool
}

// NewSQLiteConfig returns a config for the journal at path, falling back to
// the SQLITE_DB_PATH environment variable and then to ./micropub.db.
func NewSQLiteConfig(path string) *SQLiteConfig {
	if path == "" {
		path = os.Getenv("SQLITE_DB_PATH")
	}
	if path == "" {
		path = defaultPath
	}

	return &SQLiteConfig{
		Path:        path,
		BusyTimeout: defaultBusyTimeout,
	}
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds a file: URI for the modernc driver. Pragmas go in the URI so that
// every pooled connection gets them, not just the one that happened to run an Exec.
func (c *SQLiteConfig) dsn() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()), // wait on a locked database instead of failing
		"_pragma=foreign_keys(1)",
	}
	if c.ReadOnly {
		params = append(params, "mode=ro", "_pragma=query_only(1)")
	} else {
		params = append(params,
			"_pragma=journal_mode(WAL)",   // readers (micropub log) do not block the server
			"_pragma=synchronous(NORMAL)", // safe with WAL, fewer fsyncs per commit
		)
	}
	return "file:" + uriEscaper.Replace(c.Path) + "?" + strings.Join(params, "&")
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB implements the db.Database interface for SQLite
type SQLiteDB struct {
	cfg SQLiteConfig
	db  *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{
		cfg: *cfg,
	}
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.cfg.Path
}

// Connect opens the database and, unless it is read-only, brings the schema up to date.
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	db, err := sql.Open("sqlite", s.cfg.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Opening is lazy; Ping surfaces a missing file or bad path now.
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database %s: %w", s.cfg.Path, err)
	}

	if s.cfg.ReadOnly {
		s.db = db
		return nil
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}
