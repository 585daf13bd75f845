// Package db stores the final summaries of ended call sessions in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/parley/internal/config"
	_ "modernc.org/sqlite"
)

const (
	// FileName is the database file inside the base directory.
	FileName = "parley.db"
	// ExportsDirName is the subdirectory summary exports default to.
	ExportsDirName = "exports"
)

// pragmas go into the DSN so every pooled connection gets them.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []string{
	// 1: one row per ended session. The scalar columns duplicate parts of
	// summary_json so list and purge never decode it.
	`CREATE TABLE sessions (
	  id                TEXT PRIMARY KEY,
	  platform          TEXT NOT NULL,
	  started_at        INTEGER NOT NULL,
	  ended_at          INTEGER NOT NULL,
	  duration_ms       INTEGER NOT NULL,
	  total_messages    INTEGER NOT NULL,
	  total_utterances  INTEGER NOT NULL,
	  sentiment_average REAL NOT NULL,
	  summary_json      TEXT NOT NULL,
	  created_at        INTEGER NOT NULL,
	  deleted_at        INTEGER
	);
	CREATE INDEX idx_sessions_ended ON sessions(ended_at DESC) WHERE deleted_at IS NULL;
	CREATE INDEX idx_sessions_platform_ended ON sessions(platform, ended_at DESC) WHERE deleted_at IS NULL;`,
}

// SchemaVersion is the user_version a fully migrated database reports.
func SchemaVersion() int { return len(migrations) }

// Init opens (creating if needed) baseDir/parley.db and migrates it.
// baseDir and its exports subdirectory are created owner-only.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, ExportsDirName)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700) // best-effort on platforms without unix modes
	}

	path := filepath.Join(baseDir, FileName)
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := checkJournalMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0600)
	return db, nil
}

func dsn(path string) string {
	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(params, "&")
}

// ConfigurePool applies the non-zero pool limits from cfg.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs each pending migration in its own transaction together with
// the user_version bump, so a failed step leaves the previous version intact.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema v%d is newer than this build supports (v%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", v+1, err)
		}
	}
	return nil
}

func checkJournalMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("read journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("journal mode is %q, want wal", mode)
	}
	return nil
}
