package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	// DSN notes:
	// - _pragma=busy_timeout sets a lock wait
	// - _pragma=journal_mode(WAL) enables the write-ahead log
	// - _pragma=synchronous(NORMAL) sets the disk synchronizing
	//	 mode to NORMAL (recommended with WAL enabled)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes every store operation, which is what
	// the one-winner-per-spawn argument leans on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			guild_id          BIGINT  NOT NULL,
			user_id           BIGINT  NOT NULL,
			xp                INTEGER NOT NULL DEFAULT 0,
			level             INTEGER NOT NULL DEFAULT 1,
			poros_caught      INTEGER NOT NULL DEFAULT 0,
			last_catch_ts     INTEGER NOT NULL DEFAULT 0,
			title             TEXT    NOT NULL DEFAULT '',
			gold              INTEGER NOT NULL DEFAULT 0,
			berries           INTEGER NOT NULL DEFAULT 0,
			traps             INTEGER NOT NULL DEFAULT 0,
			food              INTEGER NOT NULL DEFAULT 0,
			traps_armed       INTEGER NOT NULL DEFAULT 0,
			last_free_food_ts INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (guild_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS guild_config (
			guild_id            BIGINT PRIMARY KEY,
			game_channel_id     BIGINT  NOT NULL DEFAULT 0,
			showcase_channel_id BIGINT  NOT NULL DEFAULT 0,
			next_spawn_ts       INTEGER NOT NULL DEFAULT 0,
			daily_spawn_target  INTEGER NOT NULL DEFAULT 6,
			daily_spawn_count   INTEGER NOT NULL DEFAULT 0,
			daily_spawn_date    TEXT    NOT NULL DEFAULT '',
			last_showcase_ts    INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS spawns (
			guild_id             BIGINT PRIMARY KEY,
			channel_id           BIGINT  NOT NULL,
			message_id           BIGINT  NOT NULL,
			spawn_ts             INTEGER NOT NULL,
			active               INTEGER NOT NULL DEFAULT 1,
			poro_id              INTEGER NOT NULL,
			spawn_size           INTEGER NOT NULL,
			spawn_weight         INTEGER NOT NULL,
			spawn_throw_distance INTEGER NOT NULL,
			spawn_fluffiness     INTEGER NOT NULL,
			spawn_hunger         INTEGER NOT NULL,
			first_interaction_ts INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS spawn_attempts (
			guild_id   BIGINT  NOT NULL,
			message_id BIGINT  NOT NULL,
			user_id    BIGINT  NOT NULL,
			attempt_ts INTEGER NOT NULL,
			PRIMARY KEY (guild_id, message_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS spawn_berries (
			guild_id   BIGINT  NOT NULL,
			message_id BIGINT  NOT NULL,
			user_id    BIGINT  NOT NULL,
			used_ts    INTEGER NOT NULL,
			PRIMARY KEY (guild_id, message_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS user_poros (
			guild_id        BIGINT  NOT NULL,
			user_id         BIGINT  NOT NULL,
			poro_id         INTEGER NOT NULL,
			caught_count    INTEGER NOT NULL DEFAULT 0,
			first_caught_ts INTEGER NOT NULL,
			last_catch_ts   INTEGER NOT NULL,
			PRIMARY KEY (guild_id, user_id, poro_id)
		);

		CREATE TABLE IF NOT EXISTS user_catches (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id          BIGINT  NOT NULL,
			user_id           BIGINT  NOT NULL,
			poro_id           INTEGER NOT NULL,
			caught_ts         INTEGER NOT NULL,
			size              INTEGER NOT NULL,
			weight            INTEGER NOT NULL,
			throw_distance    INTEGER NOT NULL,
			fluffiness        INTEGER NOT NULL,
			hunger            INTEGER NOT NULL,
			nickname          TEXT    NOT NULL DEFAULT '',
			hunger_updated_ts INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_catches_owner
			ON user_catches (guild_id, user_id, caught_ts DESC);

		CREATE TABLE IF NOT EXISTS trap_stash (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id       BIGINT  NOT NULL,
			user_id        BIGINT  NOT NULL,
			poro_id        INTEGER NOT NULL,
			caught_ts      INTEGER NOT NULL,
			size           INTEGER NOT NULL,
			weight         INTEGER NOT NULL,
			throw_distance INTEGER NOT NULL,
			fluffiness     INTEGER NOT NULL,
			hunger         INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stash_owner
			ON trap_stash (guild_id, user_id);
	`)
	return err
}

// withTx runs fn inside a SQL transaction.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
