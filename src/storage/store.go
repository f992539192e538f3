package storage

import (
	"fmt"

	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

// NewStore picks the backend named by storage.db_type. Call Initialize before use.
func NewStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IStore, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, log.Named("PostgresDB"))
	case "sqlite", "":
		return NewSQLiteDB(cfg, log.Named("SQLiteDB"))
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
	}
}
