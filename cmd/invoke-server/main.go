// Local invoke server.
//
// Runs the demo application behind the adapter without Lambda: a gRPC
// InvokeService accepting raw envelopes, and an HTTP emulator that turns
// ordinary requests into Function URL invocations. Prometheus metrics are
// served on /metrics of the HTTP listener.
//
// Usage:
//
//	go run ./cmd/invoke-server                       # gRPC :50051, HTTP :9000
//	go run ./cmd/invoke-server -config adapter.yaml
//	curl localhost:9000/hello?name=dev
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/namesmt/lambda-adapter/adapter/config"
	"github.com/namesmt/lambda-adapter/adapter/demo"
	"github.com/namesmt/lambda-adapter/adapter/grpc"
	"github.com/namesmt/lambda-adapter/adapter/handler"
	"github.com/namesmt/lambda-adapter/adapter/logging"
	"github.com/namesmt/lambda-adapter/adapter/observability"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	grpcAddr := flag.String("grpc-addr", "", "gRPC listen address (overrides config)")
	httpAddr := flag.String("http-addr", "", "HTTP emulator listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	config.SetAdapterConfig(cfg)

	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("invoke_server_failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("invoke_server_stopped")
}

func run(ctx context.Context, cfg *config.AdapterConfig, logger *logging.Logger) error {
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	ns := trigger.NewNamespace(cfg.TriggerSalt)
	app, factory, err := demo.NewApp(ns,
		trigger.WithLogger(logger),
		trigger.WithMetrics(cfg.MetricsEnabled),
	)
	if err != nil {
		return err
	}
	adapter := handler.New(app, ns,
		handler.WithLogger(logger),
		handler.WithMetrics(cfg.MetricsEnabled),
	)

	logger.Info("invoke_server_starting",
		"grpc_addr", cfg.GRPCAddr,
		"http_addr", cfg.HTTPAddr,
		"trigger_sources", factory.Sources(),
		"streaming", cfg.Streaming,
	)

	grpcServer := grpc.NewGracefulServer(grpc.NewInvokeServer(adapter, logger), cfg.GRPCAddr, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newHTTPHandler(&emulator{adapter: adapter, logger: logger, streaming: cfg.Streaming}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	timeout := time.Duration(cfg.ShutdownTimeout) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	g.Go(func() error {
		logger.Info("http_emulator_started", "address", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http emulator: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		grpcServer.ShutdownWithTimeout(timeout)
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
