package main

import (
	"context"
	"time"

	"meme-market/src/auth"
	"meme-market/src/events"
	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/ledger"
	"meme-market/src/logger"
	"meme-market/src/models"
	"meme-market/src/network"
	"meme-market/src/server"
	"meme-market/src/storage"
)

const (
	dbInitAttempts = 5
	dbInitDelay    = time.Second
)

// -----------------------------------------------------------------------------

// setupDatabase opens the configured store and creates its schema, retrying
// while the database comes up.
func setupDatabase(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (interfaces.IStore, error) {
	db, err := storage.NewStore(config, logger.NewLogger(config, "Storage"))
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}

	err = helpers.RetryWithBackoff(appLogger, "database initialization", dbInitAttempts, dbInitDelay, func() error {
		return db.Initialize(ctx)
	})
	if err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupPublishers connects the brokers trades are fanned out to.
func setupPublishers(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (*events.MultiPublisher, error) {
	publishers, err := events.NewPublishers(ctx, config, logger.NewLogger(config, "Events"))
	if err != nil {
		appLogger.Error("Failed to init trade publishers: %v", err)
		return nil, err
	}
	appLogger.Info("Trade publishers: %v", publishers.Names())
	return publishers, nil
}

// -----------------------------------------------------------------------------

// setupServer builds the HTTP server with identity resolution. The OAuth
// provider is only wired outside debug mode.
func setupServer(config *models.MConfig, market *ledger.Ledger, db interfaces.IStore, appLogger *logger.Logger) (*server.MarketServer, error) {
	authSvc := auth.NewService(config, db, logger.NewLogger(config, "Auth"))

	var oauth *auth.OAuthProvider
	if !config.Debug {
		netMgr := network.NewNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
		oauth = auth.NewOAuthProvider(config, netMgr, logger.NewLogger(config, "OAuth"))
	}

	srv, err := server.NewMarketServer(config, market, authSvc, oauth, logger.NewLogger(config, "MarketServer"))
	if err != nil {
		appLogger.Error("Failed to init server: %v", err)
		return nil, err
	}
	return srv, nil
}
