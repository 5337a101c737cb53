// Package handlers records which component methods handle which socket
// events, and turns a tagged method into a callable bound to its receiver.
//
// Tags live in a side table keyed by component type, filled in when the
// component is defined and read once by the lifecycle coordinator:
//
//	hs := handlers.New()
//	hs.OnConnect((*ChatService)(nil), "Connected")
//	hs.EventListener((*ChatService)(nil), "Message", "chat:message")
//
// Tagging never changes the method itself.
package handlers

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/specialistvlad/ioclient/internal/transport"
)

// Metadata is the tag attached to one method.
type Metadata struct {
	Method string
	Event  string
}

// Binding is a tag resolved against a live component instance.
type Binding struct {
	Component string
	Method    string
	Event     string
}

// Handlers holds all the registered tags.
type Handlers struct {
	mu     sync.RWMutex
	byType map[reflect.Type][]Metadata
}

// New creates an empty tag table.
func New() *Handlers {
	return &Handlers{byType: make(map[reflect.Type][]Metadata)}
}

// EventListener tags method of component's type as a handler of event.
// component is only used for its type; a typed nil pointer is fine. Tags of
// one type keep their registration order, which is the order handlers of
// the same event fire in.
func (h *Handlers) EventListener(component any, method, event string) {
	typ := reflect.TypeOf(component)
	if typ == nil {
		panic("handlers: component must not be an untyped nil")
	}
	if method == "" || event == "" {
		panic(fmt.Sprintf("handlers: method and event are required (type %s)", typ))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, md := range h.byType[typ] {
		if md.Method == method && md.Event == event {
			panic(fmt.Sprintf("handlers: %s.%s already listens to '%s'", typ, method, event))
		}
	}
	slog.Debug("Registering event handler.", "type", typ.String(), "method", method, "event", event)
	h.byType[typ] = append(h.byType[typ], Metadata{Method: method, Event: event})
}

// OnConnect tags method as a handler of the "connect" event.
func (h *Handlers) OnConnect(component any, method string) {
	h.EventListener(component, method, transport.EventConnect)
}

// OnDisconnect tags method as a handler of the "disconnect" event.
func (h *Handlers) OnDisconnect(component any, method string) {
	h.EventListener(component, method, transport.EventDisconnect)
}

// OnConnectError tags method as a handler of the "connect_error" event.
func (h *Handlers) OnConnectError(component any, method string) {
	h.EventListener(component, method, transport.EventConnectError)
}

// Lookup returns the tags registered for the dynamic type of component.
func (h *Handlers) Lookup(component any) []Metadata {
	typ := reflect.TypeOf(component)
	if typ == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Metadata(nil), h.byType[typ]...)
}

// Len returns the total number of tags.
func (h *Handlers) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, tags := range h.byType {
		n += len(tags)
	}
	return n
}
