// Package handler is the invocation boundary between the platform and an
// http.Handler application.
//
// An Adapter decodes the invocation payload, builds the canonical request,
// serves it through the application and converts the response back into the
// result shape of the original envelope. Faults inside translation or the
// application never escape: they are logged, counted and answered with a
// generic 500 in the envelope's shape.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/observability"
	"github.com/namesmt/lambda-adapter/adapter/translate"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

// Adapter serves invocation payloads through an http.Handler.
type Adapter struct {
	app     http.Handler
	ns      *trigger.Namespace
	logger  Logger
	tracer  oteltrace.Tracer
	metrics bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for invocation spans.
func WithTracer(tracer oteltrace.Tracer) Option {
	return func(a *Adapter) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithMetrics enables Prometheus invocation metrics.
func WithMetrics(enabled bool) Option {
	return func(a *Adapter) {
		a.metrics = enabled
	}
}

// New creates an Adapter for app. Trigger envelopes are routed to paths of ns.
func New(app http.Handler, ns *trigger.Namespace, opts ...Option) *Adapter {
	a := &Adapter{
		app:    app,
		ns:     ns,
		logger: nopLogger{},
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle serves one buffered invocation. It only returns an error when the
// payload cannot be decoded as an envelope; every later fault becomes a 500
// result.
func (a *Adapter) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	start := time.Now()

	env, err := envelope.Parse(payload)
	if err != nil {
		a.logger.Error("invocation_decode_failed", "error", err.Error())
		a.recordFailure("", "decode")
		return nil, err
	}

	ctx, span := a.startSpan(ctx, env, "lambda.invoke")
	defer span.End()

	resp, stage, err := a.serve(ctx, env)
	if err != nil {
		a.fail(span, env, stage, err)
		resp = translate.InternalServerError()
	}

	out, err := translate.Result(env, resp)
	if err != nil {
		a.fail(span, env, "result", err)
		resp = translate.InternalServerError()
		if out, err = translate.Result(env, resp); err != nil {
			return nil, err
		}
	}

	a.complete(ctx, span, env, resp.StatusCode, start)
	return out, nil
}

func (a *Adapter) serve(ctx context.Context, env *envelope.Envelope) (*translate.Response, string, error) {
	req, err := translate.Request(ctx, env, a.ns)
	if err != nil {
		return nil, "request", err
	}

	rec := translate.NewRecorder()
	err = SafeExecute(a.logger, "dispatch", func() error {
		a.app.ServeHTTP(rec, req)
		return nil
	})
	if err != nil {
		return nil, "dispatch", err
	}
	return rec.Response(), "", nil
}

// =============================================================================
// INSTRUMENTATION
// =============================================================================

func (a *Adapter) startSpan(ctx context.Context, env *envelope.Envelope, name string) (context.Context, oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("lambda_adapter.variant", env.Variant.String()),
	}
	if env.EventSource != "" {
		attrs = append(attrs, attribute.String("lambda_adapter.event_source", env.EventSource))
	}
	if id := requestID(ctx, env); id != "" {
		attrs = append(attrs, attribute.String("faas.invocation_id", id))
	}
	return a.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

func (a *Adapter) fail(span oteltrace.Span, env *envelope.Envelope, stage string, err error) {
	a.logger.Error("invocation_failed",
		"variant", env.Variant.String(),
		"stage", stage,
		"error", err.Error(),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	a.recordFailure(env.Variant.String(), stage)
}

func (a *Adapter) complete(ctx context.Context, span oteltrace.Span, env *envelope.Envelope, statusCode int, start time.Time) {
	duration := time.Since(start)
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	a.logger.Debug("invocation_completed",
		"variant", env.Variant.String(),
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
		"request_id", requestID(ctx, env),
	)
	if a.metrics {
		observability.RecordInvocation(env.Variant.String(), statusCode, int(duration.Milliseconds()))
	}
}

func (a *Adapter) recordFailure(variant, stage string) {
	if a.metrics {
		observability.RecordInvocationFailure(variant, stage)
	}
}

// requestID prefers the runtime's request id over the envelope's.
func requestID(ctx context.Context, env *envelope.Envelope) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return env.RequestID()
}
