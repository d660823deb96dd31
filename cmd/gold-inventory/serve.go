package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/gold-inventory/internal/adapter/handler"
	"github.com/rl1809/gold-inventory/internal/adapter/storage"
	"github.com/rl1809/gold-inventory/internal/config"
	"github.com/rl1809/gold-inventory/internal/core/service"
)

const healthProbeInterval = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	unit, err := cfg.CurrencyUnit()
	if err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	store, err := storage.Open(connectCtx, cfg.Store, logger)
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	if m, ok := store.(storage.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	validator := service.NewStockValidator(store, logger)
	services := handler.Services{
		Inventory: service.NewInventoryService(store, logger),
		Carts:     service.NewCartService(validator, logger),
		Checkout:  service.NewCheckoutService(store, validator, unit, logger),
		Reports:   service.NewReportService(store, unit),
	}

	sessions := handler.NewSessionRegistry(cfg.Session.TTL, logger)
	sessions.StartSweeper(cfg.Session.SweepInterval)
	defer sessions.Stop()

	// gRPC health
	grpcServer := grpc.NewServer()
	grpcHandler := handler.NewGRPCHandler(store, cfg.Store.Timeout, logger)
	grpcHandler.Register(grpcServer)
	grpcHandler.Start(healthProbeInterval)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		grpcHandler.Stop()
		return fmt.Errorf("listen grpc: %w", err)
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP
	httpHandler := handler.NewHTTPHandler(services, sessions, store, cfg.Store.Timeout, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcHandler.Stop()
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	return nil
}
