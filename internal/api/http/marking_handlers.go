package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/rbac"
)

type applyMarksReq struct {
	Items    map[string]exam.MarkInput `json:"items"` // question_id -> mark
	Finalize bool                      `json:"finalize,omitempty"`
}

// GET /attempts/{attemptID}/marking — full keys visible, grader only.
func GetMarkingItemsHandler(fin *exam.Finalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		if attemptID == "" {
			http.Error(w, "attemptID required", http.StatusBadRequest)
			return
		}
		items, err := fin.MarkingItems(r.Context(), attemptID)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(items)
	}
}

// POST /attempts/{attemptID}/marks
func ApplyMarksHandler(fin *exam.Finalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		if attemptID == "" {
			http.Error(w, "attemptID required", http.StatusBadRequest)
			return
		}
		var req applyMarksReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		gradedBy := rbac.SubjectFromContext(r.Context())
		rec, err := fin.ApplyMarks(r.Context(), attemptID, req.Items, gradedBy, req.Finalize)
		if err != nil {
			writeFinalizeErr(w, err)
			return
		}
		if rec == nil {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "marks saved"})
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	}
}

// POST /attempts/{attemptID}/finalize
func FinalizeAttemptHandler(fin *exam.Finalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		rec, err := fin.Finalize(r.Context(), attemptID)
		if err != nil {
			writeFinalizeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	}
}

func writeFinalizeErr(w http.ResponseWriter, err error) {
	var incomplete *exam.IncompleteManualReviewError
	if errors.As(err, &incomplete) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":        "manual review incomplete",
			"question_ids": incomplete.QuestionIDs,
		})
		return
	}
	writeStoreErr(w, err)
}
