package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frontmesh/crossbus/internal/models"
)

// RecordResponse represents a record in API responses.
type RecordResponse struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"ts"`
}

// RecordListResponse represents the record list response.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Total   int              `json:"total"`
}

// LatestResponse represents the latest-record response.
type LatestResponse struct {
	Found  bool            `json:"found"`
	Record *RecordResponse `json:"record,omitempty"`
}

func toRecordResponse(rec models.Record) RecordResponse {
	resp := RecordResponse{
		ID:        rec.ID,
		From:      rec.Source,
		To:        rec.Target,
		Type:      rec.Type,
		Timestamp: rec.Timestamp,
	}
	if len(rec.Payload) > 0 {
		resp.Payload = rec.Payload
	}
	return resp
}

// GetRecords handles fetching all records addressed to a component, in
// publish order, optionally filtered by type. An owner with no records
// gets an empty list, not an error. With source=archive the list is
// served from the configured mirror instead (newest first), which is how
// history from before the current process is reachable.
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	typeFilter := r.URL.Query().Get("type")

	var recs []models.Record
	if r.URL.Query().Get("source") == "archive" {
		if h.arc == nil {
			h.Error(w, http.StatusNotFound, "no archive configured")
			return
		}
		mirrored, err := h.arc.RecentForTarget(r.Context(), owner, 100)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "archive error")
			return
		}
		for _, rec := range mirrored {
			if typeFilter != "" && rec.Type != typeFilter {
				continue
			}
			recs = append(recs, rec)
		}
	} else {
		recs = h.reg.Query(owner, typeFilter)
	}

	records := make([]RecordResponse, len(recs))
	for i, rec := range recs {
		records[i] = toRecordResponse(rec)
	}

	h.JSON(w, http.StatusOK, RecordListResponse{
		Records: records,
		Total:   len(records),
	})
}

// GetLatest handles fetching the most recent record for (owner, type).
// Absence is not an error: the response carries found=false.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = "default"
	}

	rec, found := h.reg.Latest(owner, typ)
	if !found {
		h.JSON(w, http.StatusOK, LatestResponse{Found: false})
		return
	}

	resp := toRecordResponse(rec)
	h.JSON(w, http.StatusOK, LatestResponse{Found: true, Record: &resp})
}
