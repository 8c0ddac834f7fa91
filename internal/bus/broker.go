package bus

import (
	"sync"

	"github.com/frontmesh/crossbus/internal/models"
)

// Notification signals that a record was appended. Previous carries the
// record that held the same (source, target, type) slot before, if any.
type Notification struct {
	Record   models.Record  `json:"record"`
	Previous *models.Record `json:"previous,omitempty"`
}

// Broker fans each notification out to every subscriber registered for the
// record's target, without direct references between publisher and
// subscribers. Delivery is synchronous on the publishing goroutine and
// exactly once per matching subscriber. Subscribers registered after a
// publish miss it permanently; there is no replay.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]func(Notification)
	next uint64
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[uint64]func(Notification)),
	}
}

// Subscribe registers fn for notifications addressed to target and returns
// a cancel func. Cancel is idempotent and safe against concurrent publish.
func (b *Broker) Subscribe(target string, fn func(Notification)) func() {
	b.mu.Lock()
	set := b.subs[target]
	if set == nil {
		set = make(map[uint64]func(Notification))
		b.subs[target] = set
	}
	id := b.next
	b.next++
	set[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[target]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, target)
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers n to every subscriber for n.Record.Target and returns
// the number of deliveries. Callbacks run outside the broker lock so a
// subscriber may publish or unsubscribe from within its callback.
func (b *Broker) Publish(n Notification) int {
	b.mu.RLock()
	set := b.subs[n.Record.Target]
	fns := make([]func(Notification), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(n)
	}
	return len(fns)
}

// SubscriberCount returns the number of subscribers for target.
func (b *Broker) SubscriberCount(target string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[target])
}

// Clear drops all subscriptions.
func (b *Broker) Clear() {
	b.mu.Lock()
	b.subs = make(map[string]map[uint64]func(Notification))
	b.mu.Unlock()
}
