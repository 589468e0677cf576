package prompt

import (
	"context"
	"sync"
)

// Memory is a scripted IO. Questions are answered from a fixed map of
// answers by parameter name, falling back to each parameter's default.
type Memory struct {
	cache         map[string]any
	noInteraction bool
	script        *script
	log           *messageLog
}

type script struct {
	mu      sync.Mutex
	answers map[string]any
	asked   []Param
}

// NewMemory creates a scripted IO.
func NewMemory(answers map[string]any) *Memory {
	if answers == nil {
		answers = map[string]any{}
	}
	return &Memory{
		cache:  map[string]any{},
		script: &script{answers: answers},
		log:    &messageLog{},
	}
}

func (m *Memory) GetParam(ctx context.Context, p Param) (any, error) {
	if v, ok := cached(m.cache, p); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.noInteraction {
		return DefaultValue(p)
	}

	m.script.mu.Lock()
	m.script.asked = append(m.script.asked, p)
	answer, ok := m.script.answers[p.Name]
	m.script.mu.Unlock()

	if !ok {
		return DefaultValue(p)
	}
	if err, isErr := answer.(error); isErr {
		return nil, err
	}
	if err := validate(p, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// Asked returns every parameter that was put to the script, across all
// instances derived from m.
func (m *Memory) Asked() []Param {
	m.script.mu.Lock()
	defer m.script.mu.Unlock()
	out := make([]Param, len(m.script.asked))
	copy(out, m.script.asked)
	return out
}

// WasAsked reports whether a question named name was put to the script.
func (m *Memory) WasAsked(name string) bool {
	for _, p := range m.Asked() {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (m *Memory) Info(msg string)    { m.log.add(LevelInfo, msg) }
func (m *Memory) Warning(msg string) { m.log.add(LevelWarning, msg) }
func (m *Memory) Error(msg string)   { m.log.add(LevelError, msg) }

func (m *Memory) Messages() []Message { return m.log.all() }

func (m *Memory) NoInteraction() bool { return m.noInteraction }

// SetNoInteraction switches m to answer with defaults only.
func (m *Memory) SetNoInteraction(v bool) { m.noInteraction = v }

func (m *Memory) NewInstance(cache map[string]any, noInteraction bool) IO {
	return &Memory{
		cache:         copyCache(cache),
		noInteraction: noInteraction,
		script:        m.script,
		log:           m.log,
	}
}
