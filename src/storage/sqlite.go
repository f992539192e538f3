package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"meme-market/src/logger"
	"meme-market/src/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	*sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		sqlStore: &sqlStore{
			Logger: log,
			dialect: dialect{
				name:       "sqlite",
				isConflict: isSQLiteConflict,
			},
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// One connection: trades serialize on it, and ":memory:" databases stay shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		d.Logger.Warning("Failed to enable foreign keys: %v", err)
	}

	return d.createTables(ctx)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables(ctx context.Context) error {
	// SQLite types: INTEGER for int64 (unix nanos), REAL for float64, TEXT for string
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			external_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			money REAL NOT NULL,
			api_key TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			price REAL NOT NULL DEFAULT 0,
			trend TEXT NOT NULL DEFAULT 'unknown',
			last_trade_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_price ON stocks (price DESC)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			user_id TEXT NOT NULL REFERENCES users (external_id),
			stock_id TEXT NOT NULL REFERENCES stocks (id),
			shares INTEGER NOT NULL CHECK (shares >= 0),
			PRIMARY KEY (user_id, stock_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id TEXT NOT NULL REFERENCES stocks (id),
			traded_at INTEGER NOT NULL,
			price REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_history_stock ON stock_history (stock_id, id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			stock_name TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			new_price REAL NOT NULL,
			traded_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func isSQLiteConflict(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
