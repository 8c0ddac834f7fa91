package models

import "encoding/json"

// Record is one message unit exchanged between components.
type Record struct {
	ID        string          `json:"id"`   // ULID
	Source    string          `json:"from"` // Publishing component name
	Target    string          `json:"to"`   // Addressed component name
	Type      string          `json:"type"` // Free-form category
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts"`  // Unix ms
	Seq       uint64          `json:"seq"` // Insertion sequence, assigned by the log
}

// SlotKey identifies one (source, target, type) slice of the log.
type SlotKey struct {
	Source string
	Target string
	Type   string
}

// Slot returns the slot this record belongs to.
func (r Record) Slot() SlotKey {
	return SlotKey{Source: r.Source, Target: r.Target, Type: r.Type}
}
