package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meme-market/src/config"
	"meme-market/src/ledger"
	"meme-market/src/logger"
	"meme-market/src/utils"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	err = run(conf, appLogger)
	appLogger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

// run wires the components and blocks until a shutdown signal. Deferred
// cleanup runs before main decides the exit code.
func run(conf *config.Config, appLogger *logger.Logger) error {
	if conf.Debug {
		appLogger.Warning("Debug mode: /login bypasses the identity provider")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Setup Components
	db, err := setupDatabase(ctx, conf.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	publishers, err := setupPublishers(ctx, conf.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer publishers.Close()

	hours, err := utils.NewMarketHours(conf.Market.TradingCalendar)
	if err != nil {
		appLogger.Error("Failed to load trading calendar: %v", err)
		return err
	}
	if hours != nil {
		appLogger.Info("Trading restricted to %s market hours", hours.MIC)
	}

	// 5. Ledger and its transaction feed
	market := ledger.NewLedger(db, publishers, hours, conf.Market.RecentSize, logger.NewLogger(conf.MConfig, "Ledger"))
	if err := market.LoadRecent(ctx); err != nil {
		appLogger.Warning("Starting with an empty transaction feed: %v", err)
	}

	// 6. Start Servers
	srv, err := setupServer(conf.MConfig, market, db, appLogger)
	if err != nil {
		return err
	}
	if err := publishers.Add("websocket", srv); err != nil {
		appLogger.Error("Failed to attach the websocket feed: %v", err)
		return err
	}

	grpcServer, err := startServers(srv, market, db, publishers, conf.MConfig, appLogger)
	if err != nil {
		return err
	}

	// 7. Wait for a shutdown signal
	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	appLogger.Info("Shutdown complete.")
	return nil
}
