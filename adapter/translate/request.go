// Package translate converts between invocation envelopes and the canonical
// HTTP request and response served by the dispatcher.
//
// Each variant has one translator in a closed strategy table. Request builds
// an *http.Request from an envelope; Result projects a captured Response back
// into the outbound shape the platform expects for that envelope.
package translate

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
	"github.com/namesmt/lambda-adapter/adapter/typeutil"
)

// requestParts is the variant-independent description of a canonical request.
type requestParts struct {
	method     string
	host       string
	path       string
	rawPath    string
	query      string
	header     http.Header
	body       string
	base64     bool
	remoteAddr string
}

type translator struct {
	request func(env *envelope.Envelope) (*requestParts, error)
	result  func(env *envelope.Envelope, resp *Response) (any, error)
}

var translators = map[envelope.Variant]translator{
	envelope.VariantGatewayV1:    {request: gatewayV1Request, result: gatewayV1Result},
	envelope.VariantGatewayV2:    {request: gatewayV2Request, result: gatewayV2Result},
	envelope.VariantLoadBalancer: {request: loadBalancerRequest, result: loadBalancerResult},
	envelope.VariantTrigger:      {result: triggerResult},
}

func lookup(env *envelope.Envelope) (translator, error) {
	if env == nil {
		return translator{}, ErrNilEnvelope
	}
	t, ok := translators[env.Variant]
	if !ok {
		return translator{}, newError(env.Variant, "lookup", ErrUnsupportedVariant)
	}
	return t, nil
}

// Request builds the canonical request for env. The returned request carries
// env in its context (see envelope.FromContext).
//
// Trigger envelopes become a body-less TRIGGER request to the namespace path
// of their event source.
func Request(ctx context.Context, env *envelope.Envelope, ns *trigger.Namespace) (*http.Request, error) {
	t, err := lookup(env)
	if err != nil {
		return nil, err
	}
	ctx = envelope.NewContext(ctx, env)

	if env.Variant == envelope.VariantTrigger {
		source, err := env.TriggerSource()
		if err != nil {
			return nil, newError(env.Variant, "request", err)
		}
		req, err := trigger.LocalRequest(ctx, trigger.Method, ns.Path(source))
		if err != nil {
			return nil, newError(env.Variant, "request", err)
		}
		return req, nil
	}

	parts, err := t.request(env)
	if err != nil {
		return nil, newError(env.Variant, "request", err)
	}
	req, err := parts.build(ctx)
	if err != nil {
		return nil, newError(env.Variant, "request", err)
	}
	return req, nil
}

func (p *requestParts) build(ctx context.Context) (*http.Request, error) {
	u := &url.URL{
		Scheme:   "https",
		Host:     p.host,
		Path:     p.path,
		RawPath:  p.rawPath,
		RawQuery: p.query,
	}
	if u.Path == "" {
		u.Path = "/"
	}

	var body io.Reader = http.NoBody
	if p.body != "" {
		if p.base64 {
			decoded, err := base64.StdEncoding.DecodeString(p.body)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(decoded)
		} else {
			body = strings.NewReader(p.body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, p.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = p.header
	if p.remoteAddr != "" {
		req.RemoteAddr = net.JoinHostPort(p.remoteAddr, "0")
	}
	return req, nil
}

// =============================================================================
// GATEWAY V2
// =============================================================================

func gatewayV2Request(env *envelope.Envelope) (*requestParts, error) {
	e := env.GatewayV2

	header := make(http.Header, len(e.Headers)+1)
	for k, v := range e.Headers {
		if v != "" {
			header.Set(k, v)
		}
	}
	if len(e.Cookies) > 0 {
		header.Set("Cookie", strings.Join(e.Cookies, "; "))
	}

	path, err := url.PathUnescape(e.RawPath)
	if err != nil {
		return nil, err
	}
	rawPath := ""
	if path != e.RawPath {
		rawPath = e.RawPath
	}

	return &requestParts{
		method:     e.RequestContext.HTTP.Method,
		host:       domainName(env, header),
		path:       path,
		rawPath:    rawPath,
		query:      e.RawQueryString,
		header:     header,
		body:       e.Body,
		base64:     e.IsBase64Encoded,
		remoteAddr: e.RequestContext.HTTP.SourceIP,
	}, nil
}

// =============================================================================
// GATEWAY V1
// =============================================================================

func gatewayV1Request(env *envelope.Envelope) (*requestParts, error) {
	e := env.GatewayV1
	header := mergeHeaders(e.Headers, e.MultiValueHeaders)

	return &requestParts{
		method:     e.HTTPMethod,
		host:       domainName(env, header),
		path:       e.Path,
		query:      queryString(e.QueryStringParameters, e.MultiValueQueryStringParameters),
		header:     header,
		body:       e.Body,
		base64:     e.IsBase64Encoded,
		remoteAddr: e.RequestContext.Identity.SourceIP,
	}, nil
}

// =============================================================================
// LOAD BALANCER
// =============================================================================

func loadBalancerRequest(env *envelope.Envelope) (*requestParts, error) {
	e := env.LoadBalancer
	header := mergeHeaders(e.Headers, e.MultiValueHeaders)

	// The balancer sends either map, never both; multiValueHeaders wins when present.
	var cookie string
	if env.HasMultiValueHeaders() {
		cookie = strings.Join(lookupFold(e.MultiValueHeaders, "cookie"), "; ")
	} else if values := lookupFold(singleToMulti(e.Headers), "cookie"); len(values) > 0 {
		cookie = values[0]
	}
	if cookie != "" {
		header.Set("Cookie", cookie)
	}

	return &requestParts{
		method: e.HTTPMethod,
		host:   domainName(env, header),
		path:   e.Path,
		query:  queryString(e.QueryStringParameters, e.MultiValueQueryStringParameters),
		header: header,
		body:   e.Body,
		base64: e.IsBase64Encoded,
	}, nil
}

// =============================================================================
// SHARED
// =============================================================================

// domainName picks the request host: requestContext.domainName, then the
// Host header, then the first multi-value host.
func domainName(env *envelope.Envelope, header http.Header) string {
	if name, ok := typeutil.GetNestedString(env.Raw, "requestContext.domainName"); ok && name != "" {
		return name
	}
	if host := header.Get("Host"); host != "" {
		return host
	}
	if multi, ok := typeutil.GetNestedMap(env.Raw, "multiValueHeaders"); ok {
		for k, v := range multi {
			if !strings.EqualFold(k, "host") {
				continue
			}
			if values, ok := typeutil.SafeStringSlice(v); ok && len(values) > 0 {
				return values[0]
			}
		}
	}
	return ""
}

// mergeHeaders copies a single-value map and then appends multi-value entries
// not already present under the same name.
func mergeHeaders(single map[string]string, multi map[string][]string) http.Header {
	header := make(http.Header, len(single)+len(multi))
	for _, k := range sortedKeys(single) {
		if v := single[k]; v != "" {
			header.Set(k, v)
		}
	}
	for _, k := range sortedKeys(multi) {
		for _, v := range multi[k] {
			if !containsValue(header.Values(k), v) {
				header.Add(k, v)
			}
		}
	}
	return header
}

// queryString rebuilds a query string. The multi-value map is preferred
// because platforms derive the single-value map from it lossily.
func queryString(single map[string]string, multi map[string][]string) string {
	var pairs []string
	if len(multi) > 0 {
		for _, k := range sortedKeys(multi) {
			for _, v := range multi[k] {
				pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
	} else {
		for _, k := range sortedKeys(single) {
			if v := single[k]; v != "" {
				pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
	}
	return strings.Join(pairs, "&")
}

func lookupFold(m map[string][]string, key string) []string {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func singleToMulti(m map[string]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = []string{v}
		}
	}
	return out
}

func containsValue(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
