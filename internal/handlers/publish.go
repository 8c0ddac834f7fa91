package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/frontmesh/crossbus/internal/metrics"
)

// PublishRequest represents the publish request body.
type PublishRequest struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PublishResponse represents the publish response.
type PublishResponse struct {
	Accepted  bool   `json:"accepted"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Publish handles publishing a record onto the bus. A publish from a
// component that never attached is not an error: it is dropped with a
// warning so the caller can attach and retry on a later action.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.From == "" || req.To == "" {
		h.Error(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if req.Type == "" {
		req.Type = "default"
	}

	if !h.reg.Attached(req.From) {
		h.logger.Warn().
			Str("from", req.From).
			Str("to", req.To).
			Str("type", req.Type).
			Msg("publish from unattached component dropped")
		metrics.PublishesDropped.WithLabelValues("detached").Inc()

		h.JSON(w, http.StatusOK, PublishResponse{
			Accepted: false,
			Warning:  "component not attached; attach first and retry",
		})
		return
	}

	rec, ok := h.reg.Publish(req.From, req.To, req.Type, req.Payload)
	if !ok {
		h.JSON(w, http.StatusOK, PublishResponse{
			Accepted: false,
			Warning:  "registry is shut down",
		})
		return
	}

	h.JSON(w, http.StatusCreated, PublishResponse{
		Accepted:  true,
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
	})
}
