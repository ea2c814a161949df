// Package trigger routes asynchronous trigger events through an ordinary HTTP
// dispatcher.
//
// Every event source is mapped to a path under a process-lifetime secret
// namespace and requested with the non-HTTP method TRIGGER, so trigger routes
// can never collide with, or be reached from, user-declared HTTP routes.
// A Factory lets several handlers share one event source and aggregates
// their results.
package trigger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Method is the request method used for trigger dispatch.
const Method = "TRIGGER"

// localHost is the origin of every synthesized trigger request.
const localHost = "127.0.0.1"

// Namespace is the secret path prefix for trigger routes.
// It is immutable once built.
type Namespace struct {
	token string
}

// NewNamespace builds a fresh namespace token from salt, the current time and
// a random UUID. An empty salt still yields a unique token but one that is
// easier to guess.
func NewNamespace(salt string) *Namespace {
	token := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
	if salt != "" {
		token = salt + "-" + token
	}
	return &Namespace{token: token}
}

// NamespaceFromToken wraps an existing token, for processes that must agree
// on the same trigger paths.
func NamespaceFromToken(token string) *Namespace {
	return &Namespace{token: token}
}

// Token returns the raw namespace token.
func (n *Namespace) Token() string {
	return n.token
}

// Path returns the dispatcher path for eventSource.
// The same namespace always yields the same path for the same source.
func (n *Namespace) Path(eventSource string) string {
	return MergePath("/"+n.token, eventSource)
}

// MergePath joins two path segments with exactly one slash between them.
func MergePath(base, sub string) string {
	base = "/" + strings.Trim(base, "/")
	sub = strings.TrimLeft(sub, "/")
	if sub == "" {
		return base
	}
	if base == "/" {
		return base + sub
	}
	return base + "/" + sub
}

// LocalRequest builds a body-less request against the loopback origin.
// Trigger dispatch and handler fan-out both use it.
func LocalRequest(ctx context.Context, method, path string) (*http.Request, error) {
	u := &url.URL{Scheme: "http", Host: localHost, Path: path}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build local %s request: %w", method, err)
	}
	return req, nil
}
