package translate

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/testutil"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNamespace = trigger.NamespaceFromToken("tok")

func mustEnvelope(t *testing.T, raw map[string]any) *envelope.Envelope {
	t.Helper()
	env, err := envelope.FromMap(raw)
	require.NoError(t, err)
	return env
}

func mustRequest(t *testing.T, raw map[string]any) *http.Request {
	t.Helper()
	req, err := Request(context.Background(), mustEnvelope(t, raw), testNamespace)
	require.NoError(t, err)
	return req
}

func readBody(t *testing.T, req *http.Request) string {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	return string(data)
}

func responseWith(header http.Header, body string) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{StatusCode: http.StatusOK, Header: header, Body: []byte(body)}
}

// =============================================================================
// BINARY DETECTION TESTS
// =============================================================================

func TestIsContentTypeBinary(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"application/vnd.api+json", false},
		{"application/xml", false},
		{"application/atom+xml", false},
		{"text/plain", false},
		{"text/html; charset=utf-8", false},
		{"text/css", false},
		{"text/javascript", false},
		{"text/csv", false},
		{"image/svg+xml", false},
		{"image/png", true},
		{"application/octet-stream", true},
		{"application/pdf", true},
		{"text/markdown", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsContentTypeBinary(tt.contentType))
		})
	}
}

func TestIsContentEncodingBinary(t *testing.T) {
	tests := []struct {
		encoding string
		want     bool
	}{
		{"gzip", true},
		{"deflate", true},
		{"compress", true},
		{"br", true},
		{"identity", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			assert.Equal(t, tt.want, IsContentEncodingBinary(tt.encoding))
		})
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   bool
	}{
		{"json", map[string]string{"Content-Type": "application/json"}, false},
		{"png", map[string]string{"Content-Type": "image/png"}, true},
		{"gzip without content-type", map[string]string{"Content-Encoding": "gzip"}, true},
		{"nothing", map[string]string{}, false},
		{"gzip json", map[string]string{"Content-Type": "application/json", "Content-Encoding": "gzip"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			for k, v := range tt.header {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, isBinary(h))
		})
	}
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestRequest_GatewayV2(t *testing.T) {
	event := testutil.GatewayV2Event()
	event["rawQueryString"] = "a=1&a=2"
	event["cookies"] = []any{"a=1", "b=2"}
	event["body"] = `{"x":1}`
	event["requestContext"].(map[string]any)["http"].(map[string]any)["method"] = "POST"

	req := mustRequest(t, event)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://abc123.lambda-url.us-east-1.on.aws/hello?a=1&a=2", req.URL.String())
	assert.Equal(t, "a=1; b=2", req.Header.Get("Cookie"))
	assert.Len(t, req.Header.Values("Cookie"), 1)
	assert.Equal(t, "curl/8.0", req.Header.Get("User-Agent"))
	assert.Equal(t, `{"x":1}`, readBody(t, req))
	assert.Equal(t, "198.51.100.4:0", req.RemoteAddr)

	env, ok := envelope.FromContext(req.Context())
	require.True(t, ok)
	assert.Equal(t, envelope.VariantGatewayV2, env.Variant)
}

func TestRequest_GatewayV2EscapedPath(t *testing.T) {
	event := testutil.GatewayV2Event()
	event["rawPath"] = "/files/a%2Fb"

	req := mustRequest(t, event)
	assert.Equal(t, "/files/a/b", req.URL.Path)
	assert.Equal(t, "/files/a%2Fb", req.URL.EscapedPath())
}

func TestRequest_GatewayV1(t *testing.T) {
	event := testutil.GatewayV1Event()
	event["httpMethod"] = "PUT"
	event["queryStringParameters"] = map[string]any{"a": "1"}
	event["multiValueQueryStringParameters"] = map[string]any{"a": []any{"1", "2"}}

	req := mustRequest(t, event)

	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "abc123.execute-api.us-east-1.amazonaws.com", req.URL.Host)
	assert.Equal(t, "/hello", req.URL.Path)
	assert.Equal(t, "a=1&a=2", req.URL.RawQuery)
	assert.Equal(t, []string{"application/json"}, req.Header.Values("Accept"))
	assert.Equal(t, "203.0.113.7:0", req.RemoteAddr)
	assert.Equal(t, http.NoBody, req.Body)
}

func TestRequest_GatewayV1HeaderMerge(t *testing.T) {
	event := testutil.GatewayV1Event()
	event["headers"] = map[string]any{"X-Tag": "one"}
	event["multiValueHeaders"] = map[string]any{"X-Tag": []any{"one", "two"}, "x-other": []any{"o"}}

	req := mustRequest(t, event)

	assert.Equal(t, []string{"one", "two"}, req.Header.Values("X-Tag"))
	assert.Equal(t, []string{"o"}, req.Header.Values("X-Other"))
}

func TestRequest_GatewayV1HostFallbacks(t *testing.T) {
	event := testutil.GatewayV1Event()
	delete(event["requestContext"].(map[string]any), "domainName")
	event["headers"] = map[string]any{}
	event["multiValueHeaders"] = map[string]any{"host": []any{"multi.example.com"}}

	req := mustRequest(t, event)
	assert.Equal(t, "multi.example.com", req.URL.Host)
}

func TestRequest_GatewayV1Base64Body(t *testing.T) {
	event := testutil.GatewayV1Event()
	event["body"] = base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	event["isBase64Encoded"] = true

	req := mustRequest(t, event)
	assert.Equal(t, string([]byte{0x89, 'P', 'N', 'G'}), readBody(t, req))
}

func TestRequest_InvalidBase64(t *testing.T) {
	event := testutil.GatewayV1Event()
	event["body"] = "!!not base64!!"
	event["isBase64Encoded"] = true

	_, err := Request(context.Background(), mustEnvelope(t, event), testNamespace)
	require.Error(t, err)

	var tErr *TranslateError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, envelope.VariantGatewayV1, tErr.Variant)
	assert.Equal(t, "request", tErr.Op)
}

func TestRequest_LoadBalancer(t *testing.T) {
	event := testutil.LoadBalancerEvent()
	event["headers"].(map[string]any)["cookie"] = "a=1; b=2"
	event["queryStringParameters"] = map[string]any{"q": "hello world", "empty": ""}

	req := mustRequest(t, event)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "lb-123.us-east-1.elb.amazonaws.com", req.URL.Host)
	assert.Equal(t, "q=hello+world", req.URL.RawQuery)
	assert.Equal(t, "hello world", req.URL.Query().Get("q"))
	assert.Equal(t, "a=1; b=2", req.Header.Get("Cookie"))
	assert.Empty(t, req.RemoteAddr)
}

func TestRequest_LoadBalancerMultiValueCookies(t *testing.T) {
	event := testutil.LoadBalancerEvent()
	delete(event, "headers")
	event["multiValueHeaders"] = map[string]any{
		"host":   []any{"lb.example.com"},
		"cookie": []any{"a=1", "b=2"},
	}
	event["multiValueQueryStringParameters"] = map[string]any{"x": []any{"1", "2"}, "b": []any{"z"}}

	req := mustRequest(t, event)

	assert.Equal(t, "lb.example.com", req.URL.Host)
	assert.Equal(t, []string{"a=1; b=2"}, req.Header.Values("Cookie"))
	assert.Equal(t, "b=z&x=1&x=2", req.URL.RawQuery)
}

func TestRequest_Trigger(t *testing.T) {
	req := mustRequest(t, testutil.SQSEvent())

	assert.Equal(t, trigger.Method, req.Method)
	assert.Equal(t, "127.0.0.1", req.URL.Host)
	assert.Equal(t, testNamespace.Path("aws:sqs"), req.URL.Path)

	env, ok := envelope.FromContext(req.Context())
	require.True(t, ok)
	assert.Equal(t, "aws:sqs", env.EventSource)
}

func TestRequest_NilEnvelope(t *testing.T) {
	_, err := Request(context.Background(), nil, testNamespace)
	assert.ErrorIs(t, err, ErrNilEnvelope)

	_, err = Result(&envelope.Envelope{Variant: "bogus"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedVariant)
}

// =============================================================================
// RESULT TESTS
// =============================================================================

func TestResult_GatewayV2Cookies(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "text/plain")
	header.Add("Set-Cookie", "x=1")
	header.Add("Set-Cookie", "y=2")

	out, err := Result(mustEnvelope(t, testutil.GatewayV2Event()), responseWith(header, "hi"))
	require.NoError(t, err)

	res, ok := out.(events.APIGatewayV2HTTPResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"x=1", "y=2"}, res.Cookies)
	assert.Equal(t, "text/plain", res.Headers["content-type"])
	assert.NotContains(t, res.Headers, "set-cookie")
	assert.Nil(t, res.MultiValueHeaders)
	assert.Equal(t, "hi", res.Body)
	assert.False(t, res.IsBase64Encoded)
}

func TestResult_GatewayV1Cookies(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Add("Set-Cookie", "x=1")
	header.Add("Set-Cookie", "y=2")

	out, err := Result(mustEnvelope(t, testutil.GatewayV1Event()), responseWith(header, `{}`))
	require.NoError(t, err)

	res, ok := out.(events.APIGatewayProxyResponse)
	require.True(t, ok)
	assert.Equal(t, []string{"x=1", "y=2"}, res.MultiValueHeaders["set-cookie"])
	assert.Equal(t, []string{"application/json"}, res.MultiValueHeaders["content-type"])
	assert.Equal(t, "application/json", res.Headers["content-type"])
	assert.NotContains(t, res.Headers, "set-cookie")
}

func TestResult_GatewayV1WithoutMultiValue(t *testing.T) {
	event := testutil.GatewayV1Event()
	delete(event, "multiValueHeaders")

	header := make(http.Header)
	header.Set("X-One", "1")

	out, err := Result(mustEnvelope(t, event), responseWith(header, ""))
	require.NoError(t, err)

	res := out.(events.APIGatewayProxyResponse)
	assert.Nil(t, res.MultiValueHeaders)
	assert.Equal(t, "1", res.Headers["x-one"])
}

func TestResult_LoadBalancer(t *testing.T) {
	header := make(http.Header)
	header.Add("Set-Cookie", "x=1")
	header.Add("Set-Cookie", "y=2")

	resp := responseWith(header, "")
	resp.StatusCode = http.StatusNotFound

	out, err := Result(mustEnvelope(t, testutil.LoadBalancerEvent()), resp)
	require.NoError(t, err)

	res := out.(events.ALBTargetGroupResponse)
	assert.Equal(t, "404 Not Found", res.StatusDescription)
	assert.Equal(t, "x=1, y=2", res.Headers["set-cookie"])
	assert.Nil(t, res.MultiValueHeaders)
}

func TestResult_LoadBalancerMultiValue(t *testing.T) {
	event := testutil.LoadBalancerEvent()
	event["multiValueHeaders"] = map[string]any{"host": []any{"lb"}}

	header := make(http.Header)
	header.Add("Set-Cookie", "x=1")
	header.Add("X-Multi", "a")
	header.Add("X-Multi", "b")

	out, err := Result(mustEnvelope(t, event), responseWith(header, ""))
	require.NoError(t, err)

	res := out.(events.ALBTargetGroupResponse)
	assert.Equal(t, []string{"x=1"}, res.MultiValueHeaders["set-cookie"])
	assert.Equal(t, []string{"a, b"}, res.MultiValueHeaders["x-multi"])
	assert.Equal(t, "a, b", res.Headers["x-multi"])
	assert.NotContains(t, res.Headers, "set-cookie")
}

func TestResult_BinaryBody(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "image/png")

	out, err := Result(mustEnvelope(t, testutil.GatewayV2Event()), responseWith(header, "\x89PNG"))
	require.NoError(t, err)

	res := out.(events.APIGatewayV2HTTPResponse)
	assert.True(t, res.IsBase64Encoded)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x89PNG")), res.Body)
}

func TestResult_Trigger(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Add("Set-Cookie", "x=1")

	out, err := Result(mustEnvelope(t, testutil.SQSEvent()), responseWith(header, `{"a1":"A"}`))
	require.NoError(t, err)

	res := out.(events.APIGatewayV2HTTPResponse)
	assert.Equal(t, `{"a1":"A"}`, res.Body)
	assert.Equal(t, "x=1", res.Headers["set-cookie"])
	assert.Nil(t, res.Cookies)
}

func TestResult_Defaults(t *testing.T) {
	out, err := Result(mustEnvelope(t, testutil.GatewayV2Event()), &Response{})
	require.NoError(t, err)

	res := out.(events.APIGatewayV2HTTPResponse)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotNil(t, res.Headers)
}

// =============================================================================
// ROUND TRIP TESTS
// =============================================================================

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		event  map[string]any
		method string
		path   string
	}{
		{"gateway v1", testutil.GatewayV1Event(), "GET", "/hello"},
		{"gateway v2", testutil.GatewayV2Event(), "GET", "/hello"},
		{"load balancer", testutil.LoadBalancerEvent(), "GET", "/hello"},
		{"trigger", testutil.SNSEvent(), trigger.Method, testNamespace.Path("aws:sns")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := mustEnvelope(t, tt.event)
			req, err := Request(context.Background(), env, testNamespace)
			require.NoError(t, err)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.URL.Path)

			rec := NewRecorder()
			rec.Header().Set("X-Echo-Method", req.Method)
			rec.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(rec, req.URL.Path)

			out, err := Result(env, rec.Response())
			require.NoError(t, err)
			assert.NotNil(t, out)
		})
	}
}

// =============================================================================
// RECORDER AND METADATA TESTS
// =============================================================================

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Header().Set("X-Before", "1")
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusTeapot)
	rec.Header().Set("X-After", "2")
	_, _ = rec.Write([]byte("body"))
	rec.Flush()

	resp := rec.Response()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Before"))
	assert.Empty(t, resp.Header.Get("X-After"))
	assert.Equal(t, "body", string(resp.Body))
}

func TestRecorder_DefaultStatus(t *testing.T) {
	resp := NewRecorder().Response()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestStreamMetadata(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "text/event-stream")
	header.Add("Set-Cookie", "a=1")
	header.Add("Set-Cookie", "b=2")

	md := StreamMetadata(header, 0)

	assert.Equal(t, http.StatusOK, md.StatusCode)
	assert.Equal(t, map[string]string{"content-type": "text/event-stream"}, md.Headers)
	assert.Equal(t, []string{"a=1", "b=2"}, md.Cookies)
}

func TestInternalServerError(t *testing.T) {
	resp := InternalServerError()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", string(resp.Body))
}
