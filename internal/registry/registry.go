package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/token"
)

// Registry holds the components and client modules of a single
// application instance.
type Registry struct {
	factory *connection.Factory

	mu         sync.RWMutex
	components []Component
	byName     map[string]int
	modules    map[token.Token]*Module
	order      []token.Token
}

// New creates an empty registry whose modules build connections with factory.
func New(factory *connection.Factory) *Registry {
	return &Registry{
		factory: factory,
		byName:  make(map[string]int),
		modules: make(map[token.Token]*Module),
	}
}

// Provide adds a component. Names must be unique; a duplicate is a
// programmer error and panics.
func (r *Registry) Provide(c Component) {
	if c.Name == "" {
		panic("registry: component name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[c.Name]; exists {
		panic(fmt.Sprintf("component with name '%s' already registered", c.Name))
	}
	slog.Debug("Registering component.", "name", c.Name, "kind", c.Kind.String(), "transient", c.Transient)
	r.byName[c.Name] = len(r.components)
	r.components = append(r.components, c)
}

// ProvideValue registers instance as a static provider named name.
func (r *Registry) ProvideValue(name string, instance any) {
	r.Provide(Component{Name: name, Instance: instance, Kind: KindProvider})
}

// Lookup returns the instance of the component named name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.components[i].Instance, true
}

// Components returns every component, providers first, each kind in
// registration order.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, 0, len(r.components))
	for _, kind := range []Kind{KindProvider, KindController} {
		for _, c := range r.components {
			if c.Kind == kind {
				out = append(out, c)
			}
		}
	}
	return out
}

// Register creates a module from a static configuration.
func (r *Registry) Register(cfg config.ConnectionConfig) *Module {
	return r.add(staticResolver(cfg))
}

// RegisterAsync creates a module whose configuration comes from
// opts.UseFactory. opts.Providers become registry components, so they are
// both injectable into the factory and scanned for handlers.
func (r *Registry) RegisterAsync(opts AsyncOptions) *Module {
	for _, p := range opts.Providers {
		r.Provide(p)
	}
	return r.add(asyncResolver(r, opts))
}

func (r *Registry) add(resolve resolver) *Module {
	m := newModule(token.New(), resolve, r.factory)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.token] = m
	r.order = append(r.order, m.token)
	slog.Debug("Registering client module.", "token", m.token.String())
	return m
}

// Module returns the module registered under tok.
func (r *Registry) Module(tok token.Token) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[tok]
	return m, ok
}

// Modules returns every module in registration order.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, 0, len(r.order))
	for _, tok := range r.order {
		out = append(out, r.modules[tok])
	}
	return out
}

// Get returns the shared connection registered under tok, building it on
// first use.
func (r *Registry) Get(ctx context.Context, tok token.Token) (*connection.Connection, error) {
	m, ok := r.Module(tok)
	if !ok {
		return nil, fmt.Errorf("no client registered for token '%s'", tok)
	}
	return m.Get(ctx)
}
