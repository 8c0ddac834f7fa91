package bus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/frontmesh/crossbus/internal/metrics"
	"github.com/frontmesh/crossbus/internal/models"
)

// Registry owns the log, the broker, and the attached component handles.
// It is the process-wide lookup that components use to obtain their
// publish/query handle, with an explicit lifecycle: created once with New,
// torn down once with Close.
type Registry struct {
	logger zerolog.Logger
	mirror func(*models.Record)

	mu         sync.RWMutex
	log        *Log
	broker     *Broker
	components map[string]*models.Component
	cells      map[models.SlotKey]*Cell
	closed     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMirror sets a best-effort record mirror invoked after each append.
// The mirror runs on the publishing goroutine and must not block publish
// semantics; failures are its own concern.
func WithMirror(fn func(*models.Record)) Option {
	return func(r *Registry) {
		r.mirror = fn
	}
}

// New creates a Registry.
func New(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:     logger,
		log:        NewLog(),
		broker:     NewBroker(),
		components: make(map[string]*models.Component),
		cells:      make(map[models.SlotKey]*Cell),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers a component by name and returns its handle. Attaching
// an already-attached name returns a handle to the existing registration.
// Attach on a closed registry returns nil.
func (r *Registry) Attach(name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Warn().Str("component", name).Msg("attach on closed registry ignored")
		return nil
	}

	if _, ok := r.components[name]; !ok {
		r.components[name] = &models.Component{
			ID:         uuid.New(),
			Name:       name,
			AttachedAt: time.Now().UTC(),
		}
		metrics.ComponentsAttached.Inc()
	}
	return &Handle{name: name, reg: r}
}

// Detach removes a component registration. Its history stays in the log.
func (r *Registry) Detach(name string) {
	r.mu.Lock()
	delete(r.components, name)
	r.mu.Unlock()
}

// Attached reports whether name currently holds a registration.
func (r *Registry) Attached(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Component returns the registration for name, or nil.
func (r *Registry) Component(name string) *models.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[name]
	if !ok {
		return nil
	}
	out := *c
	return &out
}

// Components returns all current registrations.
func (r *Registry) Components() []models.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, *c)
	}
	return out
}

// Publish appends a record and fans it out. On a closed registry it logs a
// warning and returns nil, false instead of failing: the caller degrades
// gracefully and can retry on a later action.
func (r *Registry) Publish(from, to, typ string, payload json.RawMessage) (*models.Record, bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn().
			Str("from", from).
			Str("to", to).
			Str("type", typ).
			Msg("publish on closed registry dropped")
		metrics.PublishesDropped.WithLabelValues("closed").Inc()
		return nil, false
	}

	rec, prev := r.log.Append(from, to, typ, payload)

	if c, ok := r.components[from]; ok {
		c.Published++
	}
	if c, ok := r.components[to]; ok {
		c.Received++
	}
	cell := r.cells[rec.Slot()]
	r.mu.Unlock()

	metrics.RecordsPublished.WithLabelValues(typ).Inc()

	if cell != nil {
		cell.update(rec)
	}

	delivered := r.broker.Publish(Notification{Record: rec, Previous: prev})
	metrics.NotificationsDelivered.Add(float64(delivered))

	if r.mirror != nil {
		r.mirror(&rec)
	}

	return &rec, true
}

// Query returns all records addressed to owner in publish order.
func (r *Registry) Query(owner, typeFilter string) []models.Record {
	return r.log.Query(owner, typeFilter)
}

// Latest returns the most recent record for (owner, type), or false.
func (r *Registry) Latest(owner, typ string) (models.Record, bool) {
	return r.log.Latest(owner, typ)
}

// Subscribe registers fn for notifications addressed to target.
func (r *Registry) Subscribe(target string, fn func(Notification)) func() {
	return r.broker.Subscribe(target, fn)
}

// Cell returns the observable cell for one slot, creating it on first use.
// A cell created after its slot already has history is seeded with the
// current latest record.
func (r *Registry) Cell(key models.SlotKey) *Cell {
	r.mu.Lock()
	cell, ok := r.cells[key]
	if !ok {
		cell = newCell()
		r.cells[key] = cell
	}
	r.mu.Unlock()

	if !ok {
		if rec, found := r.log.SlotLatest(key); found {
			cell.seed(rec)
		}
	}
	return cell
}

// Log exposes the underlying record log for read-side consumers.
func (r *Registry) Log() *Log {
	return r.log
}

// Close tears the registry down: pending handles become no-ops and all
// subscriptions are dropped. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.components = make(map[string]*models.Component)
	r.mu.Unlock()

	r.broker.Clear()
}

// Handle is one component's view of the registry: publish as self, query
// records addressed to self, subscribe to own notifications. The zero
// Handle (and any handle outliving its registry) no-ops rather than
// panicking.
type Handle struct {
	name string
	reg  *Registry
}

// Name returns the component identity this handle publishes as.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Publish appends a record from this component. Returns nil when the
// registry is gone or closed; never panics. A handle that never came from
// a registry has no logger of its own, so its warning goes to the global
// one.
func (h *Handle) Publish(to, typ string, payload json.RawMessage) *models.Record {
	if h == nil || h.reg == nil {
		log.Warn().
			Str("to", to).
			Str("type", typ).
			Msg("publish without registry dropped")
		metrics.PublishesDropped.WithLabelValues("orphaned").Inc()
		return nil
	}
	rec, _ := h.reg.Publish(h.name, to, typ, payload)
	return rec
}

// Query returns records addressed to this component, optionally filtered
// by type, in publish order.
func (h *Handle) Query(typeFilter string) []models.Record {
	if h == nil || h.reg == nil {
		return nil
	}
	return h.reg.Query(h.name, typeFilter)
}

// Latest returns this component's most recent record of the given type.
func (h *Handle) Latest(typ string) (models.Record, bool) {
	if h == nil || h.reg == nil {
		return models.Record{}, false
	}
	return h.reg.Latest(h.name, typ)
}

// Subscribe registers fn for records addressed to this component.
func (h *Handle) Subscribe(fn func(Notification)) func() {
	if h == nil || h.reg == nil {
		return func() {}
	}
	return h.reg.Subscribe(h.name, fn)
}
