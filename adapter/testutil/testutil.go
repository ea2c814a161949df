// Package testutil provides shared fixtures and mocks for adapter tests.
//
// Nothing here imports other adapter packages, so any package's tests can use it.
package testutil

import (
	"encoding/json"
	"sync"
)

// =============================================================================
// MOCK LOGGER
// =============================================================================

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// MockLogger captures structured log calls for assertions.
type MockLogger struct {
	Logs []LogEntry
	mu   sync.Mutex
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Logs: make([]LogEntry, 0),
	}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.log("debug", msg, keysAndValues...)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.log("info", msg, keysAndValues...)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.log("warn", msg, keysAndValues...)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.log("error", msg, keysAndValues...)
}

func (m *MockLogger) log(level, msg string, keysAndValues ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	m.Logs = append(m.Logs, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

// HasMessage reports whether a call with msg was logged at level.
func (m *MockLogger) HasMessage(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.Logs {
		if entry.Level == level && entry.Message == msg {
			return true
		}
	}
	return false
}

// Find returns the first entry with msg.
func (m *MockLogger) Find(msg string) (LogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.Logs {
		if entry.Message == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

// =============================================================================
// RECORDING OUTBOUND
// =============================================================================

// StreamEvent is one call observed by RecordingOutbound.
type StreamEvent struct {
	Kind       string // "metadata", "write", "close"
	StatusCode int
	Headers    map[string]string
	Cookies    []string
	Data       []byte
}

// RecordingOutbound records the order of streaming calls.
// Its method set matches handler.Outbound.
type RecordingOutbound struct {
	Events []StreamEvent

	// FailWrites makes every Write return this error.
	FailWrites error

	mu sync.Mutex
}

// WriteMetadata records status, headers and cookies.
func (r *RecordingOutbound) WriteMetadata(statusCode int, headers map[string]string, cookies []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, StreamEvent{Kind: "metadata", StatusCode: statusCode, Headers: headers, Cookies: cookies})
	return nil
}

// Write records one body chunk.
func (r *RecordingOutbound) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return 0, r.FailWrites
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	r.Events = append(r.Events, StreamEvent{Kind: "write", Data: chunk})
	return len(p), nil
}

// Close records finalization.
func (r *RecordingOutbound) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, StreamEvent{Kind: "close"})
	return nil
}

// Count returns how many events of kind were recorded.
func (r *RecordingOutbound) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Body concatenates every written chunk.
func (r *RecordingOutbound) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, e := range r.Events {
		if e.Kind == "write" {
			out = append(out, e.Data...)
		}
	}
	return string(out)
}

// =============================================================================
// SAMPLE ENVELOPES
// =============================================================================

// Each constructor returns a fresh map so tests can mutate it freely.

// GatewayV1Event returns an API Gateway REST proxy event.
func GatewayV1Event() map[string]any {
	return map[string]any{
		"resource":   "/{proxy+}",
		"path":       "/hello",
		"httpMethod": "GET",
		"headers": map[string]any{
			"Host":         "abc123.execute-api.us-east-1.amazonaws.com",
			"Accept":       "application/json",
			"X-Request-Id": "r-1",
		},
		"multiValueHeaders": map[string]any{
			"Host":         []any{"abc123.execute-api.us-east-1.amazonaws.com"},
			"Accept":       []any{"application/json"},
			"X-Request-Id": []any{"r-1"},
		},
		"queryStringParameters":           nil,
		"multiValueQueryStringParameters": nil,
		"requestContext": map[string]any{
			"accountId":  "123456789012",
			"requestId":  "c6af9ac6-7b61-11e6-9a41-93e8deadbeef",
			"stage":      "prod",
			"domainName": "abc123.execute-api.us-east-1.amazonaws.com",
			"httpMethod": "GET",
			"path":       "/prod/hello",
			"identity": map[string]any{
				"sourceIp": "203.0.113.7",
			},
		},
		"body":            nil,
		"isBase64Encoded": false,
	}
}

// GatewayV2Event returns an API Gateway HTTP API (payload 2.0) event.
func GatewayV2Event() map[string]any {
	return map[string]any{
		"version":        "2.0",
		"routeKey":       "$default",
		"rawPath":        "/hello",
		"rawQueryString": "",
		"headers": map[string]any{
			"host":       "abc123.lambda-url.us-east-1.on.aws",
			"user-agent": "curl/8.0",
			"accept":     "*/*",
		},
		"requestContext": map[string]any{
			"accountId":    "123456789012",
			"apiId":        "abc123",
			"domainName":   "abc123.lambda-url.us-east-1.on.aws",
			"domainPrefix": "abc123",
			"requestId":    "e0e9a1f4-2c1b-4e0e-9b1e-0d3f5a0e8c3a",
			"routeKey":     "$default",
			"stage":        "$default",
			"http": map[string]any{
				"method":    "GET",
				"path":      "/hello",
				"protocol":  "HTTP/1.1",
				"sourceIp":  "198.51.100.4",
				"userAgent": "curl/8.0",
			},
		},
		"isBase64Encoded": false,
	}
}

// LoadBalancerEvent returns an ALB target group event without multi-value headers.
func LoadBalancerEvent() map[string]any {
	return map[string]any{
		"httpMethod": "GET",
		"path":       "/hello",
		"headers": map[string]any{
			"host":   "lb-123.us-east-1.elb.amazonaws.com",
			"accept": "text/html",
		},
		"queryStringParameters": map[string]any{},
		"requestContext": map[string]any{
			"elb": map[string]any{
				"targetGroupArn": "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/lambda/abc",
			},
		},
		"body":            "",
		"isBase64Encoded": false,
	}
}

// SQSEvent returns an SQS batch with one record.
func SQSEvent() map[string]any {
	return map[string]any{
		"Records": []any{
			map[string]any{
				"messageId":      "059f36b4-87a3-44ab-83d2-661975830a7d",
				"body":           "hello",
				"eventSource":    "aws:sqs",
				"eventSourceARN": "arn:aws:sqs:us-east-1:123456789012:queue",
				"awsRegion":      "us-east-1",
			},
		},
	}
}

// SNSEvent returns an SNS notification (capitalised EventSource).
func SNSEvent() map[string]any {
	return map[string]any{
		"Records": []any{
			map[string]any{
				"EventSource":  "aws:sns",
				"EventVersion": "1.0",
				"Sns":          map[string]any{"Message": "hi"},
			},
		},
	}
}

// EventBridgeEvent returns a scheduled EventBridge event.
func EventBridgeEvent() map[string]any {
	return map[string]any{
		"version":     "0",
		"id":          "53dc4d37-cffa-4f76-80c9-8b7d4a4d2eaa",
		"detail-type": "Scheduled Event",
		"source":      "aws.events",
		"account":     "123456789012",
		"region":      "us-east-1",
		"detail":      map[string]any{},
	}
}

// CognitoEvent returns a Cognito user pool trigger.
func CognitoEvent() map[string]any {
	return map[string]any{
		"version":       "1",
		"triggerSource": "PreSignUp_SignUp",
		"region":        "us-east-1",
		"userPoolId":    "us-east-1_abc",
		"userName":      "jane",
		"request":       map[string]any{},
		"response":      map[string]any{},
	}
}

// MustJSON encodes v or panics. For fixtures only.
func MustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
