package models

import "time"

// Slice represents one stored historical incident record in the memory bank:
// a compressed operational fingerprint plus the resolution that fixed it.
// The ID is assigned at ingest time and never changes; slices are created,
// searched, and deleted but never mutated in place.
type Slice struct {
	ID           string         `json:"id"`
	Domain       string         `json:"domain"`
	StateSummary string         `json:"state_summary"`
	Resolution   string         `json:"resolution"`
	Metadata     map[string]any `json:"metadata"`
	IngestedAt   time.Time      `json:"ingested_at"`
}

// IncidentID returns the human-facing incident identifier from metadata,
// falling back to the raw slice ID when none was recorded.
func (s Slice) IncidentID() string {
	if v, ok := s.Metadata["incident_id"].(string); ok && v != "" {
		return v
	}
	return s.ID
}

// Severity returns the recorded severity, or "unknown" when absent.
func (s Slice) Severity() string {
	if v, ok := s.Metadata["severity"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// RankedHit is one entry of a fused search result: a slice plus its combined
// relevance score and 1-based position. Hits live only for the duration of a
// request and are never persisted.
type RankedHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
	Slice Slice   `json:"slice"`
}
