package models

// Pipeline stage names, in execution order.
const (
	StageRetrieval = "retrieval"
	StageAnalysis  = "analysis"
	StageAction    = "action"
)

// StageRecord is one entry in an analysis timeline. Records are append-only
// and ordered by execution; durations come from the monotonic clock.
type StageRecord struct {
	Stage     string  `json:"stage"`
	DurationS float64 `json:"duration_s"`
	Detail    string  `json:"detail"`
}

// Match is one historical incident surfaced by the pipeline, in fused order.
type Match struct {
	Rank         int     `json:"rank"`
	Score        float64 `json:"score"`
	IncidentID   string  `json:"incident_id"`
	StateSummary string  `json:"state_summary"`
	Resolution   string  `json:"resolution"`
	Domain       string  `json:"domain"`
	Severity     string  `json:"severity"`
}

// AnalysisReport is the full result of one pipeline run: the synthesized
// runbook and root-cause pattern, the matches they were grounded on, and the
// per-stage timeline. TotalTimeS is the sum of the recorded stage durations.
type AnalysisReport struct {
	Runbook    string        `json:"runbook"`
	Pattern    string        `json:"pattern"`
	Matches    []Match       `json:"matches"`
	Timeline   []StageRecord `json:"timeline"`
	TotalTimeS float64       `json:"total_time_s"`
	Domain     string        `json:"domain"`
}
