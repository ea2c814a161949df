package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/handler"
	"github.com/namesmt/lambda-adapter/adapter/logging"
)

// emulator turns plain HTTP requests into Function URL style invocations.
type emulator struct {
	adapter   *handler.Adapter
	logger    *logging.Logger
	streaming bool
}

// newHTTPHandler mounts /metrics and routes everything else to the emulator.
func newHTTPHandler(e *emulator) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", e)
	return mux
}

func (e *emulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event, err := envelope.FromHTTPRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if e.streaming {
		if err := e.adapter.StreamHandle(r.Context(), payload, &httpOutbound{w: w}); err != nil {
			e.logger.Warn("emulator_stream_failed", "path", r.URL.Path, "error", err.Error())
		}
		return
	}

	result, err := e.adapter.Handle(r.Context(), payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, ok := result.(events.APIGatewayV2HTTPResponse)
	if !ok {
		http.Error(w, fmt.Sprintf("unexpected result %T", result), http.StatusInternalServerError)
		return
	}
	if err := writeResult(w, resp); err != nil {
		e.logger.Warn("emulator_write_failed", "path", r.URL.Path, "error", err.Error())
	}
}

func writeResult(w http.ResponseWriter, resp events.APIGatewayV2HTTPResponse) error {
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			http.Error(w, "invalid base64 body", http.StatusBadGateway)
			return err
		}
		body = decoded
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for _, c := range resp.Cookies {
		w.Header().Add("Set-Cookie", c)
	}
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(body)
	return err
}

// httpOutbound writes a streamed invocation straight to the client.
type httpOutbound struct {
	w http.ResponseWriter
}

func (o *httpOutbound) WriteMetadata(statusCode int, headers map[string]string, cookies []string) error {
	for k, v := range headers {
		o.w.Header().Set(k, v)
	}
	for _, c := range cookies {
		o.w.Header().Add("Set-Cookie", c)
	}
	o.w.WriteHeader(statusCode)
	return nil
}

func (o *httpOutbound) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

func (o *httpOutbound) Flush() error {
	if f, ok := o.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (o *httpOutbound) Close() error {
	return nil
}
