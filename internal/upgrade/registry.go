// Package upgrade migrates extensions between framework major versions.
//
// Each Script moves a project to one framework release. Scripts are kept in
// a Registry keyed by that version; Plan registers the pending ones on a
// step.Manager, one atomic group per script, so a failing script leaves the
// project as the previous script left it.
package upgrade

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/flarum/flarum-cli-sub000/internal/step"
)

// Script migrates a project to the framework release Version returns.
type Script interface {
	// Version is the framework release the script targets, e.g. "v2.0.0".
	Version() string
	// Description returns a brief description of what the script changes
	Description() string
	// Build registers the script's steps.
	Build(m *step.Manager, opts Options) error
}

// Options are shared by the steps a script registers.
type Options struct {
	// MapPaths fans every step out over monorepo sub-projects.
	MapPaths []string
	// Frontend enables the steps rewriting the project's JavaScript.
	Frontend bool
}

// Registry manages upgrade scripts
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]Script)}
}

// Default returns a registry holding the built-in scripts.
func Default() *Registry {
	r := NewRegistry()
	for _, s := range []Script{V2{}} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a script to the registry
func (r *Registry) Register(s Script) error {
	if s == nil {
		return fmt.Errorf("cannot register nil script")
	}

	version := s.Version()
	if !semver.IsValid(version) {
		return fmt.Errorf("script version %q is not a valid semantic version", version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scripts[version]; exists {
		return fmt.Errorf("a script for %s is already registered", version)
	}
	r.scripts[version] = s
	return nil
}

// Get retrieves the script for version.
func (r *Registry) Get(version string) (Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scripts[version]
	return s, ok
}

// List returns every script, oldest target first.
func (r *Registry) List() []Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scripts := make([]Script, 0, len(r.scripts))
	for _, s := range r.scripts {
		scripts = append(scripts, s)
	}
	slices.SortFunc(scripts, func(a, b Script) int {
		return semver.Compare(a.Version(), b.Version())
	})
	return scripts
}

// Pending returns the scripts a project on current needs to reach target,
// oldest first. An empty target means the newest script.
func (r *Registry) Pending(current, target string) ([]Script, error) {
	if !semver.IsValid(current) {
		return nil, fmt.Errorf("current framework version %q is not a valid semantic version", current)
	}
	if target != "" && !semver.IsValid(target) {
		return nil, fmt.Errorf("target version %q is not a valid semantic version", target)
	}

	var pending []Script
	for _, s := range r.List() {
		v := s.Version()
		if semver.Compare(v, current) <= 0 || (target != "" && semver.Compare(v, target) > 0) {
			continue
		}
		pending = append(pending, s)
	}
	return pending, nil
}

// Plan registers scripts on m, one atomic group each.
func Plan(m *step.Manager, scripts []Script, opts Options) error {
	for _, s := range scripts {
		err := m.AtomicGroup(func(g *step.Manager) error {
			return s.Build(g, opts)
		})
		if err != nil {
			return fmt.Errorf("planning upgrade to %s: %w", s.Version(), err)
		}
	}
	return nil
}
