package interfaces

import (
	"context"

	"meme-market/src/models"
)

// -----------------------------------------------------------------------------
// ITradePublisher fans executed trades out to external listeners.
// -----------------------------------------------------------------------------

type ITradePublisher interface {
	// Publish delivers one committed transaction. Failures never undo the trade.
	Publish(ctx context.Context, txn models.MTransaction) error

	// Close releases connections held by the publisher.
	Close() error
}

// -----------------------------------------------------------------------------
// IDataExchanger is a server that also receives trades to push to its clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	ITradePublisher

	// Start the server (blocking)
	Start() error

	// Stop the server gracefully
	Stop(ctx context.Context) error
}
