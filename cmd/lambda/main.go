// Lambda entrypoint.
//
// Serves the demo application behind the invocation adapter. Buffered mode
// answers API Gateway, ALB and trigger invocations; with streaming enabled the
// function must be invoked through a Function URL in RESPONSE_STREAM mode.
//
// Configuration comes from LAMBDA_ADAPTER_* environment variables and an
// optional file named by LAMBDA_ADAPTER_CONFIG.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/namesmt/lambda-adapter/adapter/config"
	"github.com/namesmt/lambda-adapter/adapter/demo"
	"github.com/namesmt/lambda-adapter/adapter/handler"
	"github.com/namesmt/lambda-adapter/adapter/logging"
	"github.com/namesmt/lambda-adapter/adapter/observability"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

func main() {
	cfg, err := config.Load(os.Getenv("LAMBDA_ADAPTER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	config.SetAdapterConfig(cfg)

	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	adapter, shutdown, err := build(cfg, logger)
	if err != nil {
		logger.Error("lambda_adapter_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if cfg.Streaming {
		logger.Info("lambda_adapter_starting", "mode", "stream")
		lambda.Start(adapter.LambdaStream)
		return
	}
	logger.Info("lambda_adapter_starting", "mode", "buffered")
	lambda.Start(adapter.Handle)
}

// build wires the namespace, demo app, factory and adapter.
// The returned shutdown flushes the tracer when tracing is enabled.
func build(cfg *config.AdapterConfig, logger *logging.Logger) (*handler.Adapter, func(context.Context) error, error) {
	shutdown := func(context.Context) error { return nil }

	if cfg.TriggerSalt == "" {
		logger.Warn("trigger_salt_missing",
			"hint", "set "+config.EnvTriggerSalt+" so trigger routes are not guessable",
		)
	}
	ns := trigger.NewNamespace(cfg.TriggerSalt)

	if cfg.TracingEnabled {
		stop, err := observability.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("init tracer: %w", err)
		}
		shutdown = stop
	}

	app, _, err := demo.NewApp(ns,
		trigger.WithLogger(logger),
		trigger.WithMetrics(cfg.MetricsEnabled),
	)
	if err != nil {
		return nil, nil, err
	}

	adapter := handler.New(app, ns,
		handler.WithLogger(logger),
		handler.WithMetrics(cfg.MetricsEnabled),
		handler.WithTracer(observability.Tracer()),
	)
	return adapter, shutdown, nil
}
