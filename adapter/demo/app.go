// Package demo is the sample application served by the binaries.
//
// It is an ordinary gorilla/mux router plus a few trigger handlers, enough to
// exercise every envelope variant end to end.
package demo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

// NewApp builds the router and registers trigger handlers on it.
func NewApp(ns *trigger.Namespace, opts ...trigger.FactoryOption) (*mux.Router, *trigger.Factory, error) {
	router := mux.NewRouter()
	router.HandleFunc("/hello", hello).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/echo", echo)
	router.HandleFunc("/stream", stream).Methods(http.MethodGet)
	router.HandleFunc("/event", event).Methods(http.MethodGet)

	factory := trigger.NewFactory(ns, trigger.MuxRegistrar{Router: router}, opts...)
	registrations := []struct {
		source string
		id     string
		h      http.HandlerFunc
	}{
		{"aws:sqs", "count", recordCount},
		{"aws:sqs", "ids", messageIDs},
		{"aws.events", "tick", tick},
	}
	for _, r := range registrations {
		if err := factory.On(r.source, r.id, r.h); err != nil {
			return nil, nil, fmt.Errorf("register %s/%s: %w", r.source, r.id, err)
		}
	}

	return router, factory, nil
}

func hello(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}
	http.SetCookie(w, &http.Cookie{Name: "greeted", Value: "1", Path: "/"})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "hello, %s", name)
}

func echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cookies := make([]string, 0)
	for _, c := range r.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method":      r.Method,
		"host":        r.Host,
		"path":        r.URL.Path,
		"query":       r.URL.Query(),
		"cookies":     cookies,
		"remote_addr": r.RemoteAddr,
		"body":        string(body),
	})
}

func stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for i := 1; i <= 3; i++ {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		fmt.Fprintf(w, "data: %d\n\n", i)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func event(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope.FromContext(r.Context())
	if !ok {
		http.Error(w, "no envelope", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variant":    env.Variant.String(),
		"request_id": env.RequestID(),
	})
}

// =============================================================================
// TRIGGER HANDLERS
// =============================================================================

func records(r *http.Request) []any {
	env, ok := envelope.FromContext(r.Context())
	if !ok {
		return nil
	}
	list, _ := env.Raw["Records"].([]any)
	return list
}

func recordCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, len(records(r)))
}

func messageIDs(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0)
	for _, rec := range records(r) {
		if m, ok := rec.(map[string]any); ok {
			if id, ok := m["messageId"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	writeJSON(w, http.StatusOK, ids)
}

func tick(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, time.Now().UTC().Format(time.RFC3339))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
