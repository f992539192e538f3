package interfaces

import (
	"context"

	"meme-market/src/models"
)

// -----------------------------------------------------------------------------
// IStore defines the contract for the identity and market stores.
// Lookups that miss return helpers.ErrUserNotFound / helpers.ErrStockNotFound.
// -----------------------------------------------------------------------------

type IStore interface {

	// Initialize sets up the database schema and tables.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------
	// Identity store

	UserByExternalID(ctx context.Context, externalID string) (*models.MUser, error)
	UserByAPIKey(ctx context.Context, apiKey string) (*models.MUser, error)
	UserByName(ctx context.Context, name string) (*models.MUser, error)

	// CreateUser inserts a new user; an error of kind helpers.KindConflict when the external ID or key exists.
	CreateUser(ctx context.Context, user *models.MUser) error
	CountUsers(ctx context.Context) (int, error)

	// -----------------------------------------------------------------------------
	// Market store

	StockByName(ctx context.Context, name string) (*models.MStock, error)
	StockByID(ctx context.Context, id string) (*models.MStock, error)

	// ListStocks returns every stock ordered by price descending.
	ListStocks(ctx context.Context) ([]models.MStock, error)

	// History returns the snapshots of a stock in trade order.
	History(ctx context.Context, stockID string) ([]models.MHistoryEntry, error)

	// RecentTransactions returns up to limit transactions, oldest first.
	RecentTransactions(ctx context.Context, limit int) ([]models.MTransaction, error)

	// -----------------------------------------------------------------------------

	// RunInTx executes fn inside one database transaction. Any error rolls back.
	RunInTx(ctx context.Context, fn func(tx ITx) error) error

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// ITx is the read-modify-write surface available inside a trade.
// Reads lock the rows they return where the backend supports it.
// -----------------------------------------------------------------------------

type ITx interface {
	UserForUpdate(externalID string) (*models.MUser, error)
	StockForUpdate(name string) (*models.MStock, error)

	// CreateStock inserts a stock at price 0 or returns the existing one of that name.
	CreateStock(name string) (*models.MStock, error)

	UpdateMoney(externalID string, money float64) error
	SetHolding(externalID, stockID string, count int) error
	UpdateStock(stock *models.MStock) error
	AppendHistory(stockID string, entry models.MHistoryEntry) error
	AppendTransaction(txn *models.MTransaction) error
}
