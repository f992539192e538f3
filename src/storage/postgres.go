package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"meme-market/src/logger"
	"meme-market/src/models"

	"github.com/lib/pq"
)

// unique_violation
const pgUniqueViolation = "23505"

// -----------------------------------------------------------------------------

type PostgresDB struct {
	*sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		sqlStore: &sqlStore{
			Logger: log,
			dialect: dialect{
				name:       "postgres",
				numbered:   true,
				forUpdate:  " FOR UPDATE",
				isConflict: isPostgresConflict,
			},
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if err := d.createTables(ctx); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			external_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			money DOUBLE PRECISION NOT NULL,
			api_key TEXT NOT NULL UNIQUE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			trend TEXT NOT NULL DEFAULT 'unknown',
			last_trade_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_price ON stocks (price DESC)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			user_id TEXT NOT NULL REFERENCES users (external_id),
			stock_id TEXT NOT NULL REFERENCES stocks (id),
			shares INTEGER NOT NULL CHECK (shares >= 0),
			PRIMARY KEY (user_id, stock_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_history (
			id BIGSERIAL PRIMARY KEY,
			stock_id TEXT NOT NULL REFERENCES stocks (id),
			traded_at BIGINT NOT NULL,
			price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_history_stock ON stock_history (stock_id, id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			stock_name TEXT NOT NULL,
			side TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			new_price DOUBLE PRECISION NOT NULL,
			traded_at BIGINT NOT NULL
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

func isPostgresConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgUniqueViolation
}
