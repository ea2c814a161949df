package envelope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/namesmt/lambda-adapter/adapter/typeutil"
)

// ErrNotObject is returned when the payload is not a JSON object.
var ErrNotObject = errors.New("envelope is not a JSON object")

// ErrNotTrigger is returned when a trigger event source is requested from a non-trigger envelope.
var ErrNotTrigger = errors.New("envelope is not a trigger event")

// DecodeError is returned when a payload cannot be decoded into its variant.
type DecodeError struct {
	Variant Variant
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Variant == "" {
		return fmt.Sprintf("decode envelope: %v", e.Cause)
	}
	return fmt.Sprintf("decode %s envelope: %v", e.Variant, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Envelope is a classified invocation payload.
//
// Raw is always set and is used for presence probes (for example whether the
// caller sent a multiValueHeaders key). Exactly one of the typed fields is set,
// matching Variant; trigger envelopes carry only EventSource.
type Envelope struct {
	Variant Variant
	Raw     map[string]any

	GatewayV1    *events.APIGatewayProxyRequest
	GatewayV2    *events.APIGatewayV2HTTPRequest
	LoadBalancer *events.ALBTargetGroupRequest
	EventSource  string
}

// Parse decodes and classifies a raw payload.
func Parse(data []byte) (*Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Cause: err}
	}
	if raw == nil {
		return nil, &DecodeError{Cause: ErrNotObject}
	}
	return decode(raw, data)
}

// FromMap classifies an already decoded payload.
func FromMap(raw map[string]any) (*Envelope, error) {
	if raw == nil {
		return nil, &DecodeError{Cause: ErrNotObject}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}
	return decode(raw, data)
}

// FromEvent wraps a typed event value (one of the aws-lambda-go request types
// or a trigger event struct) by round-tripping it through JSON.
func FromEvent(event any) (*Envelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}
	return Parse(data)
}

func decode(raw map[string]any, data []byte) (*Envelope, error) {
	env := &Envelope{Variant: Classify(raw), Raw: raw}

	var target any
	switch env.Variant {
	case VariantTrigger:
		env.EventSource, _ = EventSource(raw)
		return env, nil
	case VariantLoadBalancer:
		env.LoadBalancer = &events.ALBTargetGroupRequest{}
		target = env.LoadBalancer
	case VariantGatewayV2:
		env.GatewayV2 = &events.APIGatewayV2HTTPRequest{}
		target = env.GatewayV2
	default:
		env.GatewayV1 = &events.APIGatewayProxyRequest{}
		target = env.GatewayV1
	}

	if err := json.Unmarshal(data, target); err != nil {
		return nil, &DecodeError{Variant: env.Variant, Cause: err}
	}
	return env, nil
}

// TriggerSource returns the event source of a trigger envelope.
func (e *Envelope) TriggerSource() (string, error) {
	if e == nil || e.Variant != VariantTrigger || e.EventSource == "" {
		return "", ErrNotTrigger
	}
	return e.EventSource, nil
}

// HasMultiValueHeaders reports whether the caller sent a multiValueHeaders key.
// The outbound result mirrors this choice.
func (e *Envelope) HasMultiValueHeaders() bool {
	if e == nil {
		return false
	}
	return typeutil.HasKey(e.Raw, "multiValueHeaders")
}

// RequestID returns the platform request id when the envelope carries one.
func (e *Envelope) RequestID() string {
	if e == nil {
		return ""
	}
	switch e.Variant {
	case VariantGatewayV1:
		return e.GatewayV1.RequestContext.RequestID
	case VariantGatewayV2:
		return e.GatewayV2.RequestContext.RequestID
	default:
		return ""
	}
}

// =============================================================================
// CONTEXT
// =============================================================================

type contextKey struct{}

// NewContext returns a copy of ctx carrying env.
func NewContext(ctx context.Context, env *Envelope) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the envelope being served, if any.
// Dispatched handlers use it to read the original event.
func FromContext(ctx context.Context) (*Envelope, bool) {
	env, ok := ctx.Value(contextKey{}).(*Envelope)
	return env, ok && env != nil
}
