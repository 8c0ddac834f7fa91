package models

import (
	"time"

	"github.com/google/uuid"
)

// Component represents an attached application component (the shell or a
// feature bundle) holding a publish/query handle on the bus.
type Component struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	AttachedAt time.Time `json:"attached_at"`
	Published  int64     `json:"published"`
	Received   int64     `json:"received"`
}
