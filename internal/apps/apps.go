// Package apps defines the contract between a document and the embedded
// applications rendered from its blocks.
package apps

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/appwiki/internal/engine/router"
)

// ErrUnknownApp indicates no application is registered under a name.
var ErrUnknownApp = errors.New("unknown application")

// Props is what a renderer hands an embedded application.
type Props struct {
	// Data is the block body the application renders from.
	Data string

	// Context identifies the block and must be passed back with edits.
	Context router.AppContext

	// OnEdit receives the application's complete new block text.
	OnEdit router.EditFunc
}

// Edit forwards text to OnEdit with the props' context.
func (p Props) Edit(text string) error {
	if p.OnEdit == nil {
		return nil
	}
	return p.OnEdit(text, p.Context)
}

// App is an embedded application.
type App interface {
	// Name returns the fence info string the application answers to.
	Name() string

	// Update delivers fresh props after the document changed.
	Update(props Props)
}

// Factory creates an application from its initial props.
type Factory func(props Props) App

// Registry maps application names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory, replacing any previous one for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// New creates the application registered under name.
func (r *Registry) New(name string, props Props) (App, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApp, name)
	}
	return f(props), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
