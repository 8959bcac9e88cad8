package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/kenbot/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the cache database file inside the base directory.
const FileName = "kenbot.db"

// migration upgrades the schema from version-1 to version.
type migration struct {
	version int
	stmts   string
}

// migrations run in order; append, never edit.
var migrations = []migration{
	{
		version: 1,
		stmts: `
		CREATE TABLE IF NOT EXISTS stickers (
		  vin         TEXT PRIMARY KEY,
		  id          TEXT NOT NULL,
		  pdf         BLOB NOT NULL,
		  size_bytes  INTEGER NOT NULL,
		  source_url  TEXT,
		  fetched_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stickers_fetched_at
		ON stickers(fetched_at);
		`,
	},
}

// CurrentSchemaVersion is the version after every migration has run.
var CurrentSchemaVersion = migrations[len(migrations)-1].version

// Init opens (creating if needed) the sticker cache at baseDir/kenbot.db and
// brings its schema up to date. Tests pass t.TempDir() for baseDir.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := checkJournalMode(db, "wal"); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// ConfigurePool applies connection limits from config. A zero limit leaves
// database/sql defaults in place.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil || cfg.DBMaxOpenConns <= 0 {
		return
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
}

func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmts); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if err := SetUserVersion(db, m.version); err != nil {
			return err
		}
	}
	return nil
}

func checkJournalMode(db *sql.DB, want string) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("read journal mode: %w", err)
	}
	if mode != want {
		return fmt.Errorf("expected journal mode %s, got %s", want, mode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion stores the schema version.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
