package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/observability"
	"github.com/namesmt/lambda-adapter/adapter/translate"
)

// Outbound is the channel a streamed response is written to.
//
// WriteMetadata is called once, before the first Write. Close is called
// exactly once on every path.
type Outbound interface {
	WriteMetadata(statusCode int, headers map[string]string, cookies []string) error
	Write(p []byte) (int, error)
	Close() error
}

// flusher is implemented by outbounds that buffer internally.
type flusher interface {
	Flush() error
}

var internalServerError = []byte(http.StatusText(http.StatusInternalServerError))

// StreamHandle serves one invocation, forwarding the application's writes to
// out as they happen.
//
// A fault before any metadata was sent produces a 500 prelude and a generic
// body; a fault after it appends the generic body best effort. The returned
// error reports a decode failure or an outbound failure, never an
// application fault.
func (a *Adapter) StreamHandle(ctx context.Context, payload json.RawMessage, out Outbound) (err error) {
	start := time.Now()
	w := newStreamWriter(out)

	var closeOnce sync.Once
	defer closeOnce.Do(func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})

	env, err := envelope.Parse(payload)
	if err != nil {
		a.logger.Error("invocation_decode_failed", "error", err.Error())
		a.recordFailure("", "decode")
		w.fault()
		return err
	}

	ctx, span := a.startSpan(ctx, env, "lambda.stream")
	defer span.End()

	serveErr := SafeExecute(a.logger, "stream_dispatch", func() error {
		req, err := translate.Request(ctx, env, a.ns)
		if err != nil {
			return err
		}
		a.app.ServeHTTP(w, req)
		return nil
	})
	if serveErr != nil {
		a.fail(span, env, "stream", serveErr)
		w.fault()
		return w.err
	}

	w.finish()
	if a.metrics {
		observability.RecordStreamBytes(env.Variant.String(), w.written)
	}
	a.complete(ctx, span, env, w.code, start)
	return w.err
}

// =============================================================================
// STREAM WRITER
// =============================================================================

// streamWriter adapts an Outbound to http.ResponseWriter and http.Flusher.
type streamWriter struct {
	out     Outbound
	header  http.Header
	code    int
	sent    bool
	writes  int
	written int
	err     error
}

func newStreamWriter(out Outbound) *streamWriter {
	return &streamWriter{out: out, header: make(http.Header)}
}

func (w *streamWriter) Header() http.Header {
	return w.header
}

func (w *streamWriter) WriteHeader(code int) {
	if w.sent {
		return
	}
	w.sent = true
	w.code = code
	md := translate.StreamMetadata(w.header, code)
	w.setErr(w.out.WriteMetadata(md.StatusCode, md.Headers, md.Cookies))
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	w.writes++
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.out.Write(p)
	w.written += n
	w.setErr(err)
	return n, err
}

// Flush sends pending metadata and flushes the outbound when it buffers.
func (w *streamWriter) Flush() {
	w.WriteHeader(http.StatusOK)
	if f, ok := w.out.(flusher); ok && w.err == nil {
		w.setErr(f.Flush())
	}
}

// finish completes a successful response. An empty body still produces a
// zero-length write so the platform sees a body.
func (w *streamWriter) finish() {
	w.WriteHeader(http.StatusOK)
	if w.writes == 0 {
		_, _ = w.Write([]byte{})
	}
}

// fault writes the generic error response, or appends its body when the
// prelude already went out.
func (w *streamWriter) fault() {
	if !w.sent {
		w.header = make(http.Header)
		w.header.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
	}
	if w.err == nil {
		_, _ = w.out.Write(internalServerError)
	}
}

func (w *streamWriter) setErr(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}

// =============================================================================
// LAMBDA FUNCTION URL STREAMING
// =============================================================================

// ErrNoMetadata is returned when a stream closed without a prelude.
var ErrNoMetadata = errors.New("stream closed before metadata was written")

// LambdaStream serves payload as a Function URL streaming response. It
// returns once the application has sent its status and headers; the body is
// read from the returned response while the application keeps writing.
func (a *Adapter) LambdaStream(ctx context.Context, payload json.RawMessage) (*events.LambdaFunctionURLStreamingResponse, error) {
	pr, pw := io.Pipe()
	out := &pipeOutbound{pw: pw, ready: make(chan struct{})}

	go func() {
		if err := a.StreamHandle(ctx, payload, out); err != nil {
			a.logger.Warn("stream_outbound_failed", "error", err.Error())
		}
	}()

	select {
	case <-out.ready:
	case <-ctx.Done():
		_ = pr.CloseWithError(ctx.Err())
		return nil, ctx.Err()
	}

	if out.md == nil {
		_ = pr.Close()
		return nil, ErrNoMetadata
	}
	return &events.LambdaFunctionURLStreamingResponse{
		StatusCode: out.md.StatusCode,
		Headers:    out.md.Headers,
		Cookies:    out.md.Cookies,
		Body:       pr,
	}, nil
}

// pipeOutbound publishes metadata once and streams the body into a pipe.
type pipeOutbound struct {
	pw    *io.PipeWriter
	md    *translate.Metadata
	once  sync.Once
	ready chan struct{}
}

func (p *pipeOutbound) WriteMetadata(statusCode int, headers map[string]string, cookies []string) error {
	p.once.Do(func() {
		p.md = &translate.Metadata{StatusCode: statusCode, Headers: headers, Cookies: cookies}
		close(p.ready)
	})
	return nil
}

func (p *pipeOutbound) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return p.pw.Write(b)
}

func (p *pipeOutbound) Close() error {
	p.once.Do(func() { close(p.ready) })
	return p.pw.Close()
}
