package translate

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
)

// Response is the canonical response captured from the dispatcher.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// InternalServerError is the generic response used when an invocation faults.
func InternalServerError() *Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{
		StatusCode: http.StatusInternalServerError,
		Header:     header,
		Body:       []byte(http.StatusText(http.StatusInternalServerError)),
	}
}

// Result converts resp into the outbound result for env's variant:
// events.APIGatewayProxyResponse for GatewayV1, events.ALBTargetGroupResponse
// for LoadBalancer and events.APIGatewayV2HTTPResponse otherwise.
func Result(env *envelope.Envelope, resp *Response) (any, error) {
	t, err := lookup(env)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &Response{StatusCode: http.StatusOK}
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	return t.result(env, resp)
}

// projection is the header, cookie and body form shared by every variant.
type projection struct {
	body      string
	base64    bool
	headers   map[string]string
	multi     map[string][]string
	cookies   []string
	withMulti bool
}

func project(env *envelope.Envelope, resp *Response) *projection {
	p := &projection{
		headers:   make(map[string]string),
		withMulti: env.HasMultiValueHeaders(),
	}
	p.body, p.base64 = encodeBody(resp)

	if p.withMulti {
		p.multi = make(map[string][]string)
	}
	for key, values := range resp.Header {
		name := strings.ToLower(key)
		if name == "set-cookie" {
			p.cookies = append(p.cookies, values...)
			continue
		}
		joined := strings.Join(values, ", ")
		p.headers[name] = joined
		if p.withMulti {
			p.multi[name] = []string{joined}
		}
	}
	return p
}

func encodeBody(resp *Response) (string, bool) {
	if isBinary(resp.Header) {
		return base64.StdEncoding.EncodeToString(resp.Body), true
	}
	return string(resp.Body), false
}

// =============================================================================
// PER-VARIANT RESULTS
// =============================================================================

func gatewayV2Result(env *envelope.Envelope, resp *Response) (any, error) {
	p := project(env, resp)
	return events.APIGatewayV2HTTPResponse{
		StatusCode:        resp.StatusCode,
		Headers:           p.headers,
		MultiValueHeaders: p.multi,
		Body:              p.body,
		IsBase64Encoded:   p.base64,
		Cookies:           p.cookies,
	}, nil
}

func gatewayV1Result(env *envelope.Envelope, resp *Response) (any, error) {
	p := project(env, resp)
	if len(p.cookies) > 0 {
		if p.multi == nil {
			p.multi = make(map[string][]string)
		}
		p.multi["set-cookie"] = p.cookies
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		Headers:           p.headers,
		MultiValueHeaders: p.multi,
		Body:              p.body,
		IsBase64Encoded:   p.base64,
	}, nil
}

func loadBalancerResult(env *envelope.Envelope, resp *Response) (any, error) {
	p := project(env, resp)
	if len(p.cookies) > 0 {
		if p.withMulti {
			p.multi["set-cookie"] = p.cookies
		} else {
			p.headers["set-cookie"] = strings.Join(p.cookies, ", ")
		}
	}
	return events.ALBTargetGroupResponse{
		StatusCode:        resp.StatusCode,
		StatusDescription: statusDescription(resp.StatusCode),
		Headers:           p.headers,
		MultiValueHeaders: p.multi,
		Body:              p.body,
		IsBase64Encoded:   p.base64,
	}, nil
}

// triggerResult copies every header, Set-Cookie included, into a v2 shaped result.
func triggerResult(_ *envelope.Envelope, resp *Response) (any, error) {
	body, isBase64 := encodeBody(resp)
	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      resp.StatusCode,
		Headers:         headers,
		Body:            body,
		IsBase64Encoded: isBase64,
	}, nil
}

func statusDescription(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + text
}

// =============================================================================
// STREAMING
// =============================================================================

// Metadata is the prelude of a streamed response.
type Metadata struct {
	StatusCode int
	Headers    map[string]string
	Cookies    []string
}

// StreamMetadata splits header into plain headers and Set-Cookie values.
func StreamMetadata(header http.Header, statusCode int) Metadata {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	md := Metadata{
		StatusCode: statusCode,
		Headers:    make(map[string]string, len(header)),
		Cookies:    []string{},
	}
	for key, values := range header {
		name := strings.ToLower(key)
		if name == "set-cookie" {
			md.Cookies = append(md.Cookies, values...)
			continue
		}
		md.Headers[name] = strings.Join(values, ", ")
	}
	return md
}
