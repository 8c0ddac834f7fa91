package bus

import (
	"sync"

	"github.com/frontmesh/crossbus/internal/models"
)

// Cell is an observable view of the latest record in one
// (source, target, type) slot. It recomputes only when its slot changes,
// so presentation layers re-derive values without rescanning the log.
type Cell struct {
	mu       sync.RWMutex
	rec      models.Record
	set      bool
	watchers map[uint64]func(models.Record)
	next     uint64
}

func newCell() *Cell {
	return &Cell{
		watchers: make(map[uint64]func(models.Record)),
	}
}

// Get returns the current value, or false if the slot has never been
// published to.
func (c *Cell) Get() (models.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rec, c.set
}

// Watch registers fn to run on every slot change and returns a cancel
// func. If the cell already holds a value, fn is not called for it; use
// Get for the current value.
func (c *Cell) Watch(fn func(models.Record)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.watchers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
		})
	}
}

// update stores rec and notifies watchers outside the cell lock. Updates
// race with each other between the log append and the cell write, so any
// record at or behind the held insertion sequence is dropped: the cell
// must never move backwards from the log's latest.
func (c *Cell) update(rec models.Record) {
	c.mu.Lock()
	if c.set && rec.Seq <= c.rec.Seq {
		c.mu.Unlock()
		return
	}
	c.rec = rec
	c.set = true
	fns := make([]func(models.Record), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(rec)
	}
}

// seed stores rec without notifying watchers, for cells created after
// their slot already has history.
func (c *Cell) seed(rec models.Record) {
	c.mu.Lock()
	if !c.set {
		c.rec = rec
		c.set = true
	}
	c.mu.Unlock()
}
