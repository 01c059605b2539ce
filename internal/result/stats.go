package result

import "github.com/montanaflynn/stats"

// Stats summarizes evaluated results across many attempts of one exam.
type Stats struct {
	Count            int     `json:"count"`
	MeanScore        float64 `json:"mean_score"`
	MeanPercentage   float64 `json:"mean_percentage"`
	MedianScore      float64 `json:"median_score"`
	MedianPercentage float64 `json:"median_percentage"`
}

// ExamStats computes summary statistics over evaluated records. A nil
// return means "no data", which callers must not conflate with all-zero
// scores.
func ExamStats(records []Record) *Stats {
	if len(records) == 0 {
		return nil
	}
	scores := make(stats.Float64Data, 0, len(records))
	pcts := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		scores = append(scores, r.Total)
		pcts = append(pcts, r.Percentage)
	}
	meanScore, _ := stats.Mean(scores)
	meanPct, _ := stats.Mean(pcts)
	medianScore, _ := stats.Median(scores)
	medianPct, _ := stats.Median(pcts)
	return &Stats{
		Count:            len(records),
		MeanScore:        Round2(meanScore),
		MeanPercentage:   Round2(meanPct),
		MedianScore:      Round2(medianScore),
		MedianPercentage: Round2(medianPct),
	}
}
