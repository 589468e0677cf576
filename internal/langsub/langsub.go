// Package langsub talks to the external language subsystem, a process that
// performs structural rewrites of source files in languages the CLI does not
// parse itself.
//
// A request is a JSON object {"op": ..., ...args} written to the process's
// stdin. The process answers on stdout with either the transformed text
// (raw, or as a JSON string) or an object {"code": ..., "collected": {...}}
// carrying metadata for later steps.
package langsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flarum/flarum-cli-sub000/internal/exec"
	"github.com/flarum/flarum-cli-sub000/internal/output"
)

// ErrEmptyOutput is returned when the subsystem printed nothing.
var ErrEmptyOutput = errors.New("language subsystem produced no output")

// Request is one operation for the subsystem.
type Request map[string]any

// NewRequest builds a request for op with the given arguments.
func NewRequest(op string, args map[string]any) Request {
	req := Request{"op": op}
	for k, v := range args {
		req[k] = v
	}
	return req
}

// Op returns the operation name.
func (r Request) Op() string {
	op, _ := r["op"].(string)
	return op
}

// Response is what the subsystem returned.
type Response struct {
	Code      string
	Collected map[string]any
}

// Caller is anything that can answer subsystem requests.
type Caller interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// Client runs the subsystem as a subprocess, once per request.
type Client struct {
	executor *exec.Executor
	command  string
	args     []string
}

// NewClient creates a client running command with args through executor.
func NewClient(executor *exec.Executor, command string, args ...string) *Client {
	return &Client{executor: executor, command: command, args: args}
}

// Call sends req and decodes the answer.
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding %s request: %w", req.Op(), err)
	}

	output.Logger().Debug("calling language subsystem", "op", req.Op(), "command", exec.String(c.command, c.args...))

	out, err := c.executor.Output(ctx, payload, c.command, c.args...)
	if err != nil {
		return Response{}, fmt.Errorf("language subsystem %s: %w", req.Op(), err)
	}

	resp, err := Decode(out)
	if err != nil {
		return Response{}, fmt.Errorf("language subsystem %s: %w", req.Op(), err)
	}
	return resp, nil
}

// Decode interprets subsystem output.
func Decode(out []byte) (Response, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Response{}, ErrEmptyOutput
	}

	switch trimmed[0] {
	case '{':
		var structured struct {
			Code      *string        `json:"code"`
			Collected map[string]any `json:"collected"`
		}
		if err := json.Unmarshal(trimmed, &structured); err == nil && structured.Code != nil {
			return Response{Code: *structured.Code, Collected: structured.Collected}, nil
		}
	case '"':
		var code string
		if err := json.Unmarshal(trimmed, &code); err == nil {
			return Response{Code: code}, nil
		}
	}

	return Response{Code: string(out)}, nil
}
