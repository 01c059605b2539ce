package result

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Entry is the canonical per-question score shape. Every read path goes
// through Normalize so consumers never see the legacy field names.
type Entry struct {
	QuestionID    string      `json:"question_id"`
	Score         float64     `json:"score"`
	MaxScore      float64     `json:"max_score"`
	IsCorrect     bool        `json:"is_correct"`
	NeedsReview   bool        `json:"needs_manual_review,omitempty"`
	CorrectAnswer interface{} `json:"correct_answer,omitempty"`
}

// Normalize converts one raw breakdown entry into the canonical shape.
// Older records use marks_awarded/marks_possible/correct; the canonical
// name wins when both are present. Missing fields degrade to 0/false,
// never an error.
func Normalize(raw []byte) Entry {
	e := Entry{
		QuestionID:  pick(raw, "question_id", "id").String(),
		Score:       pick(raw, "score", "marks_awarded").Float(),
		MaxScore:    pick(raw, "max_score", "marks_possible").Float(),
		IsCorrect:   pick(raw, "is_correct", "correct").Bool(),
		NeedsReview: gjson.GetBytes(raw, "needs_manual_review").Bool(),
	}
	if v := gjson.GetBytes(raw, "correct_answer"); v.Exists() {
		e.CorrectAnswer = v.Value()
	}
	return e
}

// NormalizeAll parses a stored breakdown array, entry by entry.
func NormalizeAll(raw []byte) []Entry {
	items := gjson.ParseBytes(raw).Array()
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Normalize([]byte(it.Raw)))
	}
	return out
}

func pick(raw []byte, canonical, legacy string) gjson.Result {
	if v := gjson.GetBytes(raw, canonical); v.Exists() {
		return v
	}
	return gjson.GetBytes(raw, legacy)
}

// Record is the authoritative result for one attempt. One row per attempt;
// recomputed in place on re-finalization, never appended.
type Record struct {
	AttemptID string `json:"attempt_id"`
	Summary
	Breakdown   []Entry `json:"breakdown"`
	EvaluatedAt int64   `json:"evaluated_at"`
}

// MarshalBreakdown serializes entries for storage in canonical form.
func MarshalBreakdown(entries []Entry) ([]byte, error) {
	return json.Marshal(entries)
}
