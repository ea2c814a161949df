package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

// MinimalEvent creates or patches a GatewayV2 event carrying just enough to be
// routed: route key, method and path.
//
// For methods other than GET and HEAD a content-type of application/json is
// defaulted and a non-string body is JSON encoded. A nil body leaves the base
// event's body untouched.
func MinimalEvent(method, path string, body any, base *events.APIGatewayV2HTTPRequest) (*events.APIGatewayV2HTTPRequest, error) {
	event := base
	if event == nil {
		event = &events.APIGatewayV2HTTPRequest{}
	}

	if method != http.MethodGet && method != http.MethodHead {
		if event.Headers == nil {
			event.Headers = make(map[string]string)
		}
		if _, ok := event.Headers["content-type"]; !ok {
			event.Headers["content-type"] = "application/json"
		}

		switch b := body.(type) {
		case nil:
		case string:
			event.Body = b
		case []byte:
			event.Body = string(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode minimal event body: %w", err)
			}
			event.Body = string(data)
		}
	}

	setRoute(event, method, path)
	return event, nil
}

func setRoute(event *events.APIGatewayV2HTTPRequest, method, path string) {
	routeKey := method + " " + path
	event.Version = "2.0"
	event.RouteKey = routeKey
	event.RequestContext.RouteKey = routeKey
	event.RequestContext.HTTP.Method = method
	event.RawPath = path
	event.RequestContext.HTTP.Path = path
}

// FromHTTPRequest converts an incoming HTTP request into a GatewayV2 event,
// the shape a Function URL would deliver. Used by the local emulator.
func FromHTTPRequest(r *http.Request) (*events.APIGatewayV2HTTPRequest, error) {
	event := &events.APIGatewayV2HTTPRequest{
		RawQueryString: r.URL.RawQuery,
		Headers:        make(map[string]string, len(r.Header)),
	}

	for name, values := range r.Header {
		key := strings.ToLower(name)
		if key == "cookie" {
			for _, v := range values {
				for _, c := range strings.Split(v, ";") {
					if c = strings.TrimSpace(c); c != "" {
						event.Cookies = append(event.Cookies, c)
					}
				}
			}
			continue
		}
		event.Headers[key] = strings.Join(values, ",")
	}
	if r.Host != "" {
		event.Headers["host"] = r.Host
	}

	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	setRoute(event, r.Method, path)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > 0 {
		if utf8.Valid(body) {
			event.Body = string(body)
		} else {
			event.Body = base64.StdEncoding.EncodeToString(body)
			event.IsBase64Encoded = true
		}
	}

	now := time.Now()
	event.RequestContext.RequestID = uuid.NewString()
	event.RequestContext.DomainName = r.Host
	event.RequestContext.Stage = "$default"
	event.RequestContext.Time = now.UTC().Format("02/Jan/2006:15:04:05 -0700")
	event.RequestContext.TimeEpoch = now.UnixMilli()
	event.RequestContext.HTTP.Protocol = r.Proto
	event.RequestContext.HTTP.UserAgent = r.UserAgent()
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		event.RequestContext.HTTP.SourceIP = ip
	}

	return event, nil
}
