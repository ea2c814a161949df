package translate

import (
	"bytes"
	"net/http"
)

// Recorder is an http.ResponseWriter that buffers the dispatcher's response.
// The header is snapshotted when the status is written, as a real server would.
type Recorder struct {
	header      http.Header
	snapshot    http.Header
	code        int
	wroteHeader bool
	body        bytes.Buffer
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{header: make(http.Header)}
}

func (r *Recorder) Header() http.Header {
	return r.header
}

func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.code = code
	r.snapshot = r.header.Clone()
}

func (r *Recorder) Write(p []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p)
}

// Flush is a no-op; buffered responses are delivered whole.
func (r *Recorder) Flush() {}

// Response returns the captured response.
func (r *Recorder) Response() *Response {
	r.WriteHeader(http.StatusOK)
	return &Response{
		StatusCode: r.code,
		Header:     r.snapshot,
		Body:       r.body.Bytes(),
	}
}
