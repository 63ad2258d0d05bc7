package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"strategylab/internal/app"
	"strategylab/internal/config"
	"strategylab/internal/httpapi"
	"strategylab/internal/rpc"
	"strategylab/internal/util"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("initializing: %v", err)
	}
	defer a.Close()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpapi.NewServer(a.Service, a.Registry, metricsPath, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	gs := grpc.NewServer()
	rpc.NewServer(a.Service, a.Registry, logger).RegisterGRPC(gs)
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Fatalf("listening on %s: %v", cfg.GRPCAddr(), err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr, "source", a.Source.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()
	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := gs.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		gs.Stop()
	}
}
