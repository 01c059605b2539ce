package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/result"
)

// POST /exams — create or replace an exam with its questions and keys.
func UploadExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e exam.Exam
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if e.ID == "" || len(e.Questions) == 0 {
			http.Error(w, "id and questions required", 400)
			return
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": e.ID})
	}
}

// GET /exams/{examID} — student-safe view, answer keys stripped.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(e)
	}
}

// GET /exams/{examID}/stats — summary statistics over evaluated attempts.
// Serves null when no attempt has been evaluated yet, so "no data" stays
// distinguishable from all-zero scores.
func ExamStatsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := store.ListResults(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(result.ExamStats(recs))
	}
}
