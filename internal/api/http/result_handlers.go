package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/result"
)

// resultView is the student/parent-facing projection of a result record.
// Entries still awaiting manual review show "pending" instead of a
// number; raw answer keys are never part of a record, only the echoed
// correct-answer values.
type resultView struct {
	AttemptID     string            `json:"attempt_id"`
	Provisional   bool              `json:"provisional,omitempty"`
	Total         float64           `json:"total"`
	MaxTotal      float64           `json:"max_total"`
	Percentage    float64           `json:"percentage"`
	Passed        bool              `json:"passed"`
	PassThreshold float64           `json:"pass_threshold"`
	Breakdown     []resultEntryView `json:"breakdown"`
	EvaluatedAt   int64             `json:"evaluated_at,omitempty"`
}

type resultEntryView struct {
	QuestionID    string      `json:"question_id"`
	Score         interface{} `json:"score"` // number, or "pending"
	MaxScore      float64     `json:"max_score"`
	IsCorrect     *bool       `json:"is_correct,omitempty"`
	CorrectAnswer interface{} `json:"correct_answer,omitempty"`
}

func toResultView(rec result.Record, provisional bool) resultView {
	v := resultView{
		AttemptID:     rec.AttemptID,
		Provisional:   provisional,
		Total:         rec.Total,
		MaxTotal:      rec.MaxTotal,
		Percentage:    rec.Percentage,
		Passed:        rec.Passed,
		PassThreshold: rec.PassThreshold,
		EvaluatedAt:   rec.EvaluatedAt,
		Breakdown:     make([]resultEntryView, 0, len(rec.Breakdown)),
	}
	for _, e := range rec.Breakdown {
		ev := resultEntryView{
			QuestionID:    e.QuestionID,
			MaxScore:      e.MaxScore,
			CorrectAnswer: e.CorrectAnswer,
		}
		if e.NeedsReview {
			ev.Score = "pending"
		} else {
			ev.Score = e.Score
			correct := e.IsCorrect
			ev.IsCorrect = &correct
		}
		v.Breakdown = append(v.Breakdown, ev)
	}
	return v
}

// GET /attempts/{attemptID}/result
// Evaluated attempts serve the stored record; submitted attempts serve a
// provisional preview so reviewers can see auto-graded entries early.
func GetResultHandler(store exam.Store, fin *exam.Finalizer, guardians GuardianDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		if !canViewAttempt(r, a, guardians) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		switch a.Status {
		case exam.StatusEvaluated:
			rec, err := store.GetResult(r.Context(), attemptID)
			if err != nil {
				writeStoreErr(w, err)
				return
			}
			_ = json.NewEncoder(w).Encode(toResultView(rec, false))
		case exam.StatusSubmitted:
			rec, err := fin.Preview(r.Context(), attemptID)
			if err != nil {
				writeStoreErr(w, err)
				return
			}
			_ = json.NewEncoder(w).Encode(toResultView(rec, true))
		default:
			writeStoreErr(w, exam.ErrNotSubmitted)
		}
	}
}
