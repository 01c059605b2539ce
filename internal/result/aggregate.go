package result

import "math"

// DefaultPassThreshold applies when an exam does not configure one.
const DefaultPassThreshold = 50

// Summary holds attempt-level totals derived from a breakdown.
type Summary struct {
	Total         float64 `json:"total"`
	MaxTotal      float64 `json:"max_total"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
	PassThreshold float64 `json:"pass_threshold"`
}

// Aggregate reduces a breakdown to totals and pass/fail. Entries still
// pending manual review contribute their current (possibly zero) score.
// threshold <= 0 selects the default.
func Aggregate(entries []Entry, threshold float64) Summary {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}
	s := Summary{PassThreshold: threshold}
	for _, e := range entries {
		s.Total += e.Score
		s.MaxTotal += e.MaxScore
	}
	if s.MaxTotal > 0 {
		s.Percentage = Round2(s.Total / s.MaxTotal * 100)
	}
	s.Passed = s.Percentage >= threshold
	return s
}

// Round2 rounds to two decimal places, the precision all reported
// percentages and statistics use.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
