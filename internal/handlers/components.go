package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// ComponentInfo represents a component in the list response.
type ComponentInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AttachedAt string `json:"attached_at"`
	Published  int64  `json:"published"`
	Received   int64  `json:"received"`
}

// ComponentListResponse represents the components list response.
type ComponentListResponse struct {
	Components []ComponentInfo `json:"components"`
	Total      int             `json:"total"`
}

// ListComponents handles listing attached components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	comps := h.reg.Components()
	sort.Slice(comps, func(i, j int) bool {
		return comps[i].Name < comps[j].Name
	})

	components := make([]ComponentInfo, len(comps))
	for i, c := range comps {
		components[i] = ComponentInfo{
			ID:         c.ID.String(),
			Name:       c.Name,
			AttachedAt: c.AttachedAt.Format("2006-01-02T15:04:05Z"),
			Published:  c.Published,
			Received:   c.Received,
		}
	}

	h.JSON(w, http.StatusOK, ComponentListResponse{
		Components: components,
		Total:      len(components),
	})
}

// GetComponent handles component profile lookup.
func (h *Handler) GetComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	comp := h.reg.Component(name)
	if comp == nil {
		h.Error(w, http.StatusNotFound, "component not attached")
		return
	}

	h.JSON(w, http.StatusOK, ComponentInfo{
		ID:         comp.ID.String(),
		Name:       comp.Name,
		AttachedAt: comp.AttachedAt.Format("2006-01-02T15:04:05Z"),
		Published:  comp.Published,
		Received:   comp.Received,
	})
}
