// Package envelope classifies the invocation payloads delivered by the Lambda
// runtime and holds them as a tagged union.
//
// Supported variants:
//   - GatewayV1: API Gateway REST proxy events (httpMethod, path, multiValue*)
//   - GatewayV2: API Gateway HTTP API and Function URL events (rawPath, cookies)
//   - LoadBalancer: ALB target group events (requestContext.elb)
//   - Trigger: any asynchronous event that names an event source
package envelope

// Variant identifies the shape of an envelope.
type Variant string

const (
	// VariantGatewayV1 is an API Gateway REST (payload format 1.0) event.
	VariantGatewayV1 Variant = "gateway_v1"
	// VariantGatewayV2 is an API Gateway HTTP API or Function URL (payload format 2.0) event.
	VariantGatewayV2 Variant = "gateway_v2"
	// VariantLoadBalancer is an Application Load Balancer target group event.
	VariantLoadBalancer Variant = "load_balancer"
	// VariantTrigger is an asynchronous trigger event (SQS, S3, SNS, EventBridge, Cognito, ...).
	VariantTrigger Variant = "trigger"
)

// IsHTTP reports whether the variant carries an HTTP request.
func (v Variant) IsHTTP() bool {
	switch v {
	case VariantGatewayV1, VariantGatewayV2, VariantLoadBalancer:
		return true
	default:
		return false
	}
}

// String returns the variant tag.
func (v Variant) String() string {
	return string(v)
}
