package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/frontmesh/crossbus/internal/archive"
	"github.com/frontmesh/crossbus/internal/bus"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	reg     *bus.Registry
	arc     archive.Archive // may be nil
	logger  zerolog.Logger
	preview int // recent records shown by the stats endpoint
}

// NewHandler creates a new Handler. arc may be nil when no archive backend
// is configured.
func NewHandler(reg *bus.Registry, arc archive.Archive, logger zerolog.Logger, preview int) *Handler {
	if preview <= 0 {
		preview = 5
	}
	return &Handler{reg: reg, arc: arc, logger: logger, preview: preview}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits a component name to 100 characters,
// removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
