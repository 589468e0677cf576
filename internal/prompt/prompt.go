package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrExiting means the user chose to stop. It aborts the whole run.
var ErrExiting = errors.New("exiting")

// ErrMissingParam is returned in no-interaction mode when a parameter has no
// cached value and no default.
var ErrMissingParam = errors.New("missing parameter")

// Kind is the type of question asked for a parameter.
type Kind string

const (
	Confirm     Kind = "confirm"
	Text        Kind = "text"
	Select      Kind = "select"
	MultiSelect Kind = "multiselect"
)

// Param describes one value a step needs.
type Param struct {
	Name    string
	Type    Kind
	Message string
	// Initial is the default answer. For Select it is one of Choices, for
	// MultiSelect a []string subset of Choices.
	Initial  any
	Choices  []string
	Validate func(value any) error
}

// Level is the severity of a collected message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a user-facing note emitted by a step.
type Message struct {
	Level Level
	Text  string
}

// IO is the interaction surface handed to steps.
type IO interface {
	// GetParam returns the value for p, asking the user if it is not cached.
	GetParam(ctx context.Context, p Param) (any, error)

	Info(msg string)
	Warning(msg string)
	Error(msg string)

	// Messages returns everything emitted through this IO and every instance
	// derived from it, in order.
	Messages() []Message

	NoInteraction() bool

	// NewInstance derives an IO with its own parameter cache. Messages are
	// shared with the parent.
	NewInstance(cache map[string]any, noInteraction bool) IO
}

// messageLog is shared by an IO and its derived instances.
type messageLog struct {
	mu       sync.Mutex
	messages []Message
}

func (l *messageLog) add(level Level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, Message{Level: level, Text: text})
}

func (l *messageLog) all() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// cached returns the cache entry for p, if any.
func cached(cache map[string]any, p Param) (any, bool) {
	if cache == nil {
		return nil, false
	}
	v, ok := cache[p.Name]
	return v, ok
}

// DefaultValue returns the answer a non-interactive IO gives for p.
func DefaultValue(p Param) (any, error) {
	if p.Initial != nil {
		return p.Initial, nil
	}
	switch p.Type {
	case Confirm:
		return false, nil
	case MultiSelect:
		return []string{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingParam, p.Name)
}

func validate(p Param, v any) error {
	if p.Validate == nil {
		return nil
	}
	if err := p.Validate(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", p.Name, err)
	}
	return nil
}

func copyCache(cache map[string]any) map[string]any {
	out := make(map[string]any, len(cache))
	for k, v := range cache {
		out[k] = v
	}
	return out
}
