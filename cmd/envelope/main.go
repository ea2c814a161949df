// Package main provides the envelope CLI for inspecting Lambda invocation payloads.
//
// Each command reads JSON from stdin and writes one JSON object to stdout.
// Failures are written as {"error": true, "code": ..., "message": ...} with a
// non-zero exit status.
//
// Usage:
//
//	# Which variant is this payload?
//	cat event.json | lambda-envelope classify
//
//	# Canonical request the application would see
//	cat event.json | lambda-envelope request
//
//	# Run the payload through the demo application
//	cat event.json | lambda-envelope invoke
//
//	# Build a minimal v2 event
//	echo '{"method":"POST","path":"/items","body":{"a":1}}' | lambda-envelope minimal
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"

	"github.com/namesmt/lambda-adapter/adapter/config"
	"github.com/namesmt/lambda-adapter/adapter/demo"
	"github.com/namesmt/lambda-adapter/adapter/envelope"
	"github.com/namesmt/lambda-adapter/adapter/handler"
	"github.com/namesmt/lambda-adapter/adapter/translate"
	"github.com/namesmt/lambda-adapter/adapter/trigger"
)

const (
	cmdClassify    = "classify"
	cmdSource      = "source"
	cmdRequest     = "request"
	cmdInvoke      = "invoke"
	cmdTriggerPath = "trigger-path"
	cmdMinimal     = "minimal"
	cmdVersion     = "version"
)

// Version information
const (
	Version   = "0.1.0"
	BuildTime = "2026-10-14"
)

// EnvTriggerToken pins the namespace token so request and trigger-path output
// is reproducible across runs.
const EnvTriggerToken = "LAMBDA_ADAPTER_TRIGGER_TOKEN"

func main() {
	os.Exit(run(os.Args[1:], bufio.NewReader(os.Stdin), os.Stdout, os.Stderr))
}

// cli carries the streams of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// cliError is a failure reported as the JSON error object.
type cliError struct {
	code    string
	message string
}

func (e *cliError) Error() string { return e.code + ": " + e.message }

func fail(code, format string, args ...any) error {
	return &cliError{code: code, message: fmt.Sprintf(format, args...)}
}

// run executes one command and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	commands := map[string]func() error{
		cmdVersion:     c.handleVersion,
		cmdClassify:    c.handleClassify,
		cmdSource:      c.handleSource,
		cmdRequest:     c.handleRequest,
		cmdInvoke:      c.handleInvoke,
		cmdTriggerPath: c.handleTriggerPath,
		cmdMinimal:     c.handleMinimal,
	}

	handle, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err := handle(); err != nil {
		var ce *cliError
		if !errors.As(err, &ce) {
			ce = &cliError{code: "internal_error", message: err.Error()}
		}
		c.writeJSON(map[string]any{"error": true, "code": ce.code, "message": ce.message})
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: lambda-envelope <command>

Commands:
  classify      Report the variant of an invocation payload
  source        Print the event source of a trigger payload
  request       Print the canonical HTTP request built from a payload
  invoke        Run a payload through the demo application, print the result
  trigger-path  Print the namespace path for {"event_source": "..."}
  minimal       Build a minimal v2 event from {"method", "path", "body"}
  version       Print version information

Input/Output:
  All commands read JSON from stdin and write JSON to stdout.
  Set `+EnvTriggerToken+` to pin the trigger namespace token.`)
}

// handleVersion prints version information.
func (c *cli) handleVersion() error {
	c.writeJSON(map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
	})
	return nil
}

// handleClassify prints the variant, event source and multi-value flag.
func (c *cli) handleClassify() error {
	env, err := c.readEnvelope()
	if err != nil {
		return err
	}

	out := map[string]any{
		"variant":                 env.Variant.String(),
		"http":                    env.Variant.IsHTTP(),
		"has_multi_value_headers": env.HasMultiValueHeaders(),
	}
	if env.EventSource != "" {
		out["event_source"] = env.EventSource
	}
	if id := env.RequestID(); id != "" {
		out["request_id"] = id
	}
	c.writeJSON(out)
	return nil
}

// handleSource prints the trigger event source.
func (c *cli) handleSource() error {
	env, err := c.readEnvelope()
	if err != nil {
		return err
	}
	source, err := env.TriggerSource()
	if err != nil {
		return fail("not_trigger", "%s envelope has no event source", env.Variant)
	}
	c.writeJSON(map[string]string{"event_source": source})
	return nil
}

// handleRequest prints the canonical request.
func (c *cli) handleRequest() error {
	env, err := c.readEnvelope()
	if err != nil {
		return err
	}

	req, err := translate.Request(context.Background(), env, namespace())
	if err != nil {
		return fail("translate_error", "%s", err.Error())
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fail("read_error", "%s", err.Error())
	}

	out := map[string]any{
		"method":      req.Method,
		"url":         req.URL.String(),
		"host":        req.URL.Host,
		"headers":     req.Header,
		"remote_addr": req.RemoteAddr,
	}
	if utf8.Valid(body) {
		out["body"] = string(body)
	} else {
		out["body"] = base64.StdEncoding.EncodeToString(body)
		out["body_base64"] = true
	}
	c.writeJSON(out)
	return nil
}

// handleInvoke serves the payload with the demo application.
func (c *cli) handleInvoke() error {
	input, err := c.readInput()
	if err != nil {
		return err
	}

	ns := namespace()
	app, _, err := demo.NewApp(ns)
	if err != nil {
		return fail("init_error", "%s", err.Error())
	}
	result, err := handler.New(app, ns).Handle(context.Background(), input)
	if err != nil {
		return fail("parse_error", "%s", err.Error())
	}
	c.writeJSON(result)
	return nil
}

// handleTriggerPath prints the namespace path of an event source.
func (c *cli) handleTriggerPath() error {
	input, err := c.readInput()
	if err != nil {
		return err
	}

	var in struct {
		EventSource string `json:"event_source"`
		ID          string `json:"id,omitempty"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return fail("parse_error", "Invalid JSON: %s", err.Error())
	}
	if in.EventSource == "" {
		return fail("validation_error", "event_source is required")
	}

	ns := namespace()
	path := ns.Path(in.EventSource)
	out := map[string]string{
		"token":  ns.Token(),
		"method": trigger.Method,
		"path":   path,
	}
	if in.ID != "" {
		out["handler_path"] = trigger.MergePath(path, in.ID)
	}
	c.writeJSON(out)
	return nil
}

// handleMinimal builds a minimal routable v2 event.
func (c *cli) handleMinimal() error {
	input, err := c.readInput()
	if err != nil {
		return err
	}

	var in struct {
		Method string                          `json:"method"`
		Path   string                          `json:"path"`
		Body   any                             `json:"body,omitempty"`
		Base   *events.APIGatewayV2HTTPRequest `json:"base,omitempty"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return fail("parse_error", "Invalid JSON: %s", err.Error())
	}
	if in.Method == "" {
		in.Method = http.MethodGet
	}
	if in.Path == "" {
		in.Path = "/"
	}

	event, err := envelope.MinimalEvent(in.Method, in.Path, in.Body, in.Base)
	if err != nil {
		return fail("encode_error", "%s", err.Error())
	}
	c.writeJSON(event)
	return nil
}

// namespace returns the pinned namespace, or a fresh one salted from config.
func namespace() *trigger.Namespace {
	if token := os.Getenv(EnvTriggerToken); token != "" {
		return trigger.NamespaceFromToken(token)
	}
	return trigger.NewNamespace(config.LoadFromEnv().TriggerSalt)
}

// readInput reads all input from stdin.
func (c *cli) readInput() ([]byte, error) {
	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return nil, fail("read_error", "%s", err.Error())
	}
	return data, nil
}

func (c *cli) readEnvelope() (*envelope.Envelope, error) {
	input, err := c.readInput()
	if err != nil {
		return nil, err
	}
	env, err := envelope.Parse(input)
	if err != nil {
		return nil, fail("parse_error", "%s", err.Error())
	}
	return env, nil
}

// writeJSON writes a JSON object to stdout.
func (c *cli) writeJSON(v any) {
	if err := json.NewEncoder(c.stdout).Encode(v); err != nil {
		fmt.Fprintf(c.stderr, "Error encoding JSON: %s\n", err.Error())
	}
}
