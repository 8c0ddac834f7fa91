package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AttachRequest represents the attach request body.
type AttachRequest struct {
	Name string `json:"name"`
}

// AttachResponse represents the attach response.
type AttachResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RecordsURL string `json:"records_url"`
}

// Attach handles component attachment. Attaching an already-attached name
// is idempotent and returns the existing registration.
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	existed := h.reg.Attached(name)
	if h.reg.Attach(name) == nil {
		h.Error(w, http.StatusServiceUnavailable, "registry is shut down")
		return
	}

	comp := h.reg.Component(name)
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}

	h.JSON(w, status, AttachResponse{
		ID:         comp.ID.String(),
		Name:       comp.Name,
		RecordsURL: fmt.Sprintf("/records/%s", comp.Name),
	})
}

// Detach handles component detachment. The component's record history
// stays in the log.
func (h *Handler) Detach(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !h.reg.Attached(name) {
		h.Error(w, http.StatusNotFound, "component not attached")
		return
	}

	h.reg.Detach(name)
	h.JSON(w, http.StatusOK, map[string]string{"detached": name})
}
