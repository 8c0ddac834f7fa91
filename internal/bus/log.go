package bus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/frontmesh/crossbus/internal/models"
)

// Log is the append-only in-memory record log. Records are never mutated or
// removed once appended. There is no capacity bound, eviction, or
// deduplication; history grows for the lifetime of the process.
type Log struct {
	mu      sync.RWMutex
	records []models.Record
	slots   map[models.SlotKey]int // index of the latest record per slot
	seq     uint64
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		slots: make(map[models.SlotKey]int),
	}
}

// Append constructs a record with the current time and next insertion
// sequence, appends it, and returns it together with the previous record in
// the same (source, target, type) slot, if any.
func (l *Log) Append(from, to, typ string, payload json.RawMessage) (models.Record, *models.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	rec := models.Record{
		ID:        ulid.Make().String(),
		Source:    from,
		Target:    to,
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
		Seq:       l.seq,
	}

	var prev *models.Record
	if i, ok := l.slots[rec.Slot()]; ok {
		p := l.records[i]
		prev = &p
	}

	l.slots[rec.Slot()] = len(l.records)
	l.records = append(l.records, rec)

	return rec, prev
}

// Query returns all records addressed to owner in insertion order. When
// typeFilter is non-empty, only records of that type are returned.
func (l *Log) Query(owner, typeFilter string) []models.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Record, 0)
	for _, rec := range l.records {
		if rec.Target != owner {
			continue
		}
		if typeFilter != "" && rec.Type != typeFilter {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Latest returns the record with the maximum timestamp among those matching
// (owner, type), ties broken by most recent insertion. The second return is
// false when no record matches. Timestamps are non-decreasing in practice
// but not enforced, so the full slice is scanned rather than trusting
// append order.
func (l *Log) Latest(owner, typ string) (models.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best models.Record
	found := false
	for _, rec := range l.records {
		if rec.Target != owner || rec.Type != typ {
			continue
		}
		if !found || rec.Timestamp > best.Timestamp ||
			(rec.Timestamp == best.Timestamp && rec.Seq > best.Seq) {
			best = rec
			found = true
		}
	}
	return best, found
}

// SlotLatest returns the most recent record for an exact slot, if any.
func (l *Log) SlotLatest(key models.SlotKey) (models.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.slots[key]
	if !ok {
		return models.Record{}, false
	}
	return l.records[i], true
}

// Len returns the number of appended records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Recent returns up to limit records, newest first.
func (l *Log) Recent(limit int) []models.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]models.Record, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// Snapshot returns a copy of the full log in insertion order.
func (l *Log) Snapshot() []models.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Record, len(l.records))
	copy(out, l.records)
	return out
}
