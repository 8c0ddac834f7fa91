package handlers

import (
	"net/http"
	"sort"
	"time"
)

// TargetStats represents per-target record counts.
type TargetStats struct {
	Target      string `json:"target"`
	RecordCount int64  `json:"record_count"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalComponents int              `json:"total_components"`
	TotalRecords    int              `json:"total_records"`
	ArchivedRecords int64            `json:"archived_records,omitempty"`
	LastActivity    string           `json:"last_activity"`
	TopTargets      []TargetStats    `json:"top_targets"`
	RecentRecords   []RecordResponse `json:"recent_records"`
}

// Stats returns bus statistics. Totals and top targets come from the
// in-memory log (the source of truth); the recent preview is served from
// the archive when one is configured, since the mirror survives restarts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot := h.reg.Log().Snapshot()

	// Aggregate per-target counts and last activity
	counts := make(map[string]int64)
	var lastTS int64
	for _, rec := range snapshot {
		counts[rec.Target]++
		if rec.Timestamp > lastTS {
			lastTS = rec.Timestamp
		}
	}

	topTargets := make([]TargetStats, 0, len(counts))
	for target, n := range counts {
		topTargets = append(topTargets, TargetStats{Target: target, RecordCount: n})
	}
	sort.Slice(topTargets, func(i, j int) bool {
		if topTargets[i].RecordCount != topTargets[j].RecordCount {
			return topTargets[i].RecordCount > topTargets[j].RecordCount
		}
		return topTargets[i].Target < topTargets[j].Target
	})
	if len(topTargets) > 5 {
		topTargets = topTargets[:5]
	}

	lastActivity := "no activity yet"
	if lastTS > 0 {
		lastActivity = formatTimeAgo(time.UnixMilli(lastTS))
	}

	resp := StatsResponse{
		TotalComponents: len(h.reg.Components()),
		TotalRecords:    len(snapshot),
		LastActivity:    lastActivity,
		TopTargets:      topTargets,
	}

	// Recent preview: archive-backed when available, log-backed otherwise
	if h.arc != nil {
		if count, err := h.arc.CountRecords(ctx); err == nil {
			resp.ArchivedRecords = count
		}
		recent, err := h.arc.Recent(ctx, h.preview)
		if err != nil {
			// Non-fatal, fall back to the log
			recent = nil
		}
		for _, rec := range recent {
			resp.RecentRecords = append(resp.RecentRecords, toRecordResponse(rec))
		}
	}
	if resp.RecentRecords == nil {
		for _, rec := range h.reg.Log().Recent(h.preview) {
			resp.RecentRecords = append(resp.RecentRecords, toRecordResponse(rec))
		}
	}
	if resp.RecentRecords == nil {
		resp.RecentRecords = []RecordResponse{}
	}

	h.JSON(w, http.StatusOK, resp)
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return formatInt(mins) + " minutes ago"
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return formatInt(hours) + " hours ago"
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return formatInt(days) + " days ago"
	}
}

// formatInt converts an int to string without importing strconv.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
