package envelope

import (
	"github.com/namesmt/lambda-adapter/adapter/typeutil"
)

// eventSourcePaths lists where trigger events name their source, in probe order.
//
// These shapes are permissive: an HTTP event that happens to carry a top-level
// "source" string is classified as a trigger. That false positive is accepted
// rather than reordering the probes.
var eventSourcePaths = []string{
	"eventSource",           // MSK, self-managed Kafka, MQ
	"Name",                  // CloudWatch Logs subscription style events
	"Records.0.eventSource", // SQS, S3, DynamoDB streams, Kinesis
	"Records.0.EventSource", // SNS
	"source",                // EventBridge / CloudWatch Events
	"triggerSource",         // Cognito user pool triggers
}

// EventSource extracts the trigger event source identifier.
// It returns false when no known field yields a non-empty string.
func EventSource(raw map[string]any) (string, bool) {
	for _, path := range eventSourcePaths {
		v, ok := typeutil.GetNestedValue(raw, path)
		if !ok {
			continue
		}
		if s, ok := typeutil.SafeNonEmptyString(v); ok {
			return s, true
		}
	}
	return "", false
}

// IsTrigger reports whether raw is a trigger event.
func IsTrigger(raw map[string]any) bool {
	_, ok := EventSource(raw)
	return ok
}

// IsLoadBalancer reports whether raw carries the ALB marker requestContext.elb.
func IsLoadBalancer(raw map[string]any) bool {
	rc, ok := typeutil.SafeMapStringAny(raw["requestContext"])
	if !ok {
		return false
	}
	return typeutil.HasKey(rc, "elb")
}

// IsGatewayV2 reports whether raw carries a rawPath field.
func IsGatewayV2(raw map[string]any) bool {
	return typeutil.HasKey(raw, "rawPath")
}

// Classify determines the variant of an untyped envelope.
// Trigger is probed first because trigger payloads are open maps that could
// otherwise match an HTTP shape. Anything unrecognised is GatewayV1.
func Classify(raw map[string]any) Variant {
	switch {
	case IsTrigger(raw):
		return VariantTrigger
	case IsLoadBalancer(raw):
		return VariantLoadBalancer
	case IsGatewayV2(raw):
		return VariantGatewayV2
	default:
		return VariantGatewayV1
	}
}
