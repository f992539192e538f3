package main

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"meme-market/src/events"
	pb "meme-market/src/grpc_control"
	"meme-market/src/interfaces"
	"meme-market/src/ledger"
	"meme-market/src/logger"
	"meme-market/src/models"
)

// -----------------------------------------------------------------------------

// startServers runs the HTTP server and, when a port is configured, the gRPC
// control server. The returned gRPC server is nil when disabled.
func startServers(
	srv interfaces.IDataExchanger,
	market *ledger.Ledger,
	db interfaces.IStore,
	publishers *events.MultiPublisher,
	config *models.MConfig,
	appLogger *logger.Logger,
) (*grpc.Server, error) {

	// 1. HTTP API and trade feed
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if config.GrpcPort == 0 {
		appLogger.Info("gRPC control server disabled")
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error("failed to listen for gRPC: %v", err)
		return nil, err
	}

	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(market, db, publishers, logger.NewLogger(config, "ControlService"))
	pb.RegisterMarketControlServer(grpcServer, controlService)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()

	return grpcServer, nil
}
