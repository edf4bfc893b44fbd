package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Handler is an opaque registration handle: one callback bound to one update
// kind, optionally gated by a filter. Every registration gets a distinct
// handle, so the same function may be registered twice and removed
// individually.
type Handler struct {
	id     string
	kind   Kind
	fn     HandlerFunc
	filter Filter
}

// ID returns the handle's unique identifier.
func (h *Handler) ID() string { return h.id }

// Kind returns the update kind the handler is bound to.
func (h *Handler) Kind() Kind { return h.kind }

// Registry holds registered handlers keyed by update kind. It is owned by one
// Bot instance. Mutation is only legal before the bot starts; once running it
// is read concurrently without locks, which the lifecycle check makes safe.
type Registry struct {
	handlers map[Kind]map[string]*Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]map[string]*Handler)}
}

// Register adds a handler for the given kind and returns its handle.
func (r *Registry) Register(kind Kind, fn HandlerFunc, filter Filter) (*Handler, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if fn == nil {
		return nil, fmt.Errorf("register %s: nil handler function", kind)
	}
	h := &Handler{
		id:     uuid.New().String(),
		kind:   kind,
		fn:     fn,
		filter: filter,
	}
	set := r.handlers[kind]
	if set == nil {
		set = make(map[string]*Handler)
		r.handlers[kind] = set
	}
	set[h.id] = h
	return h, nil
}

// Unregister removes a previously registered handler.
func (r *Registry) Unregister(h *Handler) error {
	if h == nil {
		return fmt.Errorf("unregister: %w", ErrHandlerNotFound)
	}
	set := r.handlers[h.kind]
	if _, ok := set[h.id]; !ok {
		return fmt.Errorf("unregister %s handler %s: %w", h.kind, h.id, ErrHandlerNotFound)
	}
	delete(set, h.id)
	return nil
}

// HandlersFor returns the handlers registered for kind as a snapshot slice.
// Order is unspecified.
func (r *Registry) HandlersFor(kind Kind) []*Handler {
	set := r.handlers[kind]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Handler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// Len returns the total number of registered handlers.
func (r *Registry) Len() int {
	n := 0
	for _, set := range r.handlers {
		n += len(set)
	}
	return n
}
