package trigger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/namesmt/lambda-adapter/adapter/observability"
)

// Reserved handler ids.
const (
	// RootTakeover, when registered, is the only handler invoked for its
	// source and its response is returned verbatim.
	RootTakeover = "$!"

	// RootReturn runs after every ordinary handler and its response replaces
	// the aggregated result.
	RootReturn = "$="

	reservedPrefix = "$"
)

var jsonContentType = regexp.MustCompile(`^application/json`)

// Factory multiplexes one trigger route per event source to many handlers.
//
// Registration must complete before the first trigger is dispatched. The
// first dispatch seals the factory; later registrations fail with
// ErrRegistrationClosed, so the tables are read without locking.
type Factory struct {
	ns        *Namespace
	registrar Registrar
	logger    Logger
	metrics   bool

	sources map[string]*sourceTable
	order   []string
	sealed  atomic.Bool
}

type sourceTable struct {
	eventSource string
	ids         []string
	handlers    map[string]http.Handler
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the factory logger.
func WithLogger(logger Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics enables per-handler Prometheus metrics.
func WithMetrics(enabled bool) FactoryOption {
	return func(f *Factory) {
		f.metrics = enabled
	}
}

// NewFactory creates a Factory that installs its routes through r.
func NewFactory(ns *Namespace, r Registrar, opts ...FactoryOption) *Factory {
	f := &Factory{
		ns:        ns,
		registrar: r,
		logger:    nopLogger{},
		sources:   make(map[string]*sourceTable),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Namespace returns the namespace trigger paths are built from.
func (f *Factory) Namespace() *Namespace {
	return f.ns
}

// =============================================================================
// REGISTRATION
// =============================================================================

// On registers h under id for eventSource. The first registration for a
// source installs its dispatcher route.
func (f *Factory) On(eventSource, id string, h http.Handler) error {
	if f.sealed.Load() {
		return ErrRegistrationClosed
	}
	if eventSource == "" || id == "" || h == nil {
		return ErrInvalidRegistration
	}

	table, ok := f.sources[eventSource]
	if ok {
		if _, exists := table.handlers[id]; exists {
			return NewDuplicateHandlerError(eventSource, id)
		}
	} else {
		table = &sourceTable{
			eventSource: eventSource,
			handlers:    make(map[string]http.Handler),
		}
		f.sources[eventSource] = table
		f.order = append(f.order, eventSource)
		f.registrar.Handle(Method, f.ns.Path(eventSource), f.fanOut(table))
		f.logger.Info("trigger_route_installed", "event_source", eventSource)
	}

	table.ids = append(table.ids, id)
	table.handlers[id] = h
	f.logger.Debug("trigger_registered", "event_source", eventSource, "handler_id", id)
	return nil
}

// OnFunc registers a handler function.
func (f *Factory) OnFunc(eventSource, id string, h func(http.ResponseWriter, *http.Request)) error {
	if h == nil {
		return ErrInvalidRegistration
	}
	return f.On(eventSource, id, http.HandlerFunc(h))
}

// MustOn is like On but panics on error. Intended for startup wiring.
func (f *Factory) MustOn(eventSource, id string, h http.Handler) *Factory {
	if err := f.On(eventSource, id, h); err != nil {
		panic(err)
	}
	return f
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// Sources returns the registered event sources in registration order.
func (f *Factory) Sources() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Handlers returns the handler ids of eventSource in registration order.
func (f *Factory) Handlers(eventSource string) []string {
	table, ok := f.sources[eventSource]
	if !ok {
		return nil
	}
	out := make([]string, len(table.ids))
	copy(out, table.ids)
	return out
}

// Sealed reports whether the factory has dispatched a trigger.
func (f *Factory) Sealed() bool {
	return f.sealed.Load()
}

// =============================================================================
// FAN-OUT
// =============================================================================

func (f *Factory) fanOut(table *sourceTable) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.sealed.Store(true)

		if h, ok := table.handlers[RootTakeover]; ok {
			f.forward(w, r, table.eventSource, RootTakeover, h)
			return
		}

		var body bytes.Buffer
		body.WriteByte('{')
		first := true

		for _, id := range table.ids {
			if strings.HasPrefix(id, reservedPrefix) {
				continue
			}

			rec, err := f.invoke(r, table.eventSource, id, table.handlers[id])
			if err != nil {
				f.fail(w, table.eventSource, id, err)
				return
			}
			value, err := rec.value()
			if err != nil {
				f.fail(w, table.eventSource, id, &HandlerResultError{EventSource: table.eventSource, ID: id, Cause: err})
				return
			}

			if !first {
				body.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(id)
			body.Write(key)
			body.WriteByte(':')
			body.Write(value)
		}
		body.WriteByte('}')

		if h, ok := table.handlers[RootReturn]; ok {
			f.forward(w, r, table.eventSource, RootReturn, h)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body.Bytes())
	})
}

// invoke runs one handler against a fresh local request that shares the
// parent's context.
func (f *Factory) invoke(parent *http.Request, eventSource, id string, h http.Handler) (*capture, error) {
	req, err := LocalRequest(parent.Context(), Method, MergePath(eventSource, id))
	if err != nil {
		return nil, err
	}

	rec := newCapture()
	start := time.Now()
	h.ServeHTTP(rec, req)

	if f.metrics {
		observability.RecordTriggerHandler(eventSource, id, rec.status(), int(time.Since(start).Milliseconds()))
	}
	return rec, nil
}

// forward runs a reserved handler and copies its response verbatim.
func (f *Factory) forward(w http.ResponseWriter, parent *http.Request, eventSource, id string, h http.Handler) {
	rec, err := f.invoke(parent, eventSource, id, h)
	if err != nil {
		f.fail(w, eventSource, id, err)
		return
	}
	for k, v := range rec.header {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.status())
	_, _ = w.Write(rec.body.Bytes())
}

func (f *Factory) fail(w http.ResponseWriter, eventSource, id string, err error) {
	f.logger.Error("trigger_handler_failed",
		"event_source", eventSource,
		"handler_id", id,
		"error", err.Error(),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// =============================================================================
// CAPTURE
// =============================================================================

// capture buffers one handler response.
type capture struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func newCapture() *capture {
	return &capture{header: make(http.Header)}
}

func (c *capture) Header() http.Header {
	return c.header
}

func (c *capture) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
}

func (c *capture) Write(p []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	return c.body.Write(p)
}

func (c *capture) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}

var errInvalidJSON = errors.New("response declared application/json but is not valid JSON")

// value returns the aggregated JSON form of the response: the decoded JSON
// document for JSON responses, otherwise the body as a JSON string.
func (c *capture) value() (json.RawMessage, error) {
	if jsonContentType.MatchString(c.header.Get("Content-Type")) {
		var out bytes.Buffer
		if err := json.Compact(&out, c.body.Bytes()); err != nil {
			return nil, errors.Join(errInvalidJSON, err)
		}
		return out.Bytes(), nil
	}
	return json.Marshal(c.body.String())
}
