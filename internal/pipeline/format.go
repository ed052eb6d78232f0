package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// contextBlock renders the retrieved slices into the evidence block embedded
// in both prompts.
func contextBlock(hits []models.RankedHit) string {
	parts := make([]string, 0, len(hits))
	for i, h := range hits {
		parts = append(parts, fmt.Sprintf("[Match %d] Incident %s (similarity=%s)\nState: %s\nResolution: %s",
			i+1, h.Slice.IncidentID(), formatScore(h.Score), h.Slice.StateSummary, h.Slice.Resolution))
	}
	return strings.Join(parts, "\n\n")
}

// roundScore rounds a fused score for display. Neighbouring RRF ranks differ
// by less than 0.01, so anything coarser than four decimal places would
// collapse them.
func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}

func formatScore(s float64) string {
	return strconv.FormatFloat(roundScore(s), 'f', -1, 64)
}

func formatScores(hits []models.RankedHit) string {
	rendered := make([]string, 0, len(hits))
	for _, h := range hits {
		rendered = append(rendered, formatScore(h.Score))
	}
	return "[" + strings.Join(rendered, ", ") + "]"
}

// roundSeconds converts a wall-clock duration to seconds at the two-decimal
// resolution reported in the timeline.
func roundSeconds(d time.Duration) float64 {
	return round2(d.Seconds())
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}
