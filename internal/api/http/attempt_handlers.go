package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/rbac"
)

// GuardianDirectory answers whether a parent account oversees a student.
// Backed by the guardians table (auth.Guardians).
type GuardianDirectory interface {
	Oversees(ctx context.Context, parentID, studentID string) (bool, error)
}

func CreateAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamID string `json:"exam_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		if req.ExamID == "" || sub == "" {
			http.Error(w, "exam_id required", 400)
			return
		}
		a, err := store.NewAttempt(r.Context(), req.ExamID, sub)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

func SaveResponsesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var resp map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if !ownAttempt(r, store, id) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := store.SaveResponses(r.Context(), id, resp)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

func SubmitAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if !ownAttempt(r, store, id) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := store.Submit(r.Context(), id)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

func GetAttemptHandler(store exam.Store, guardians GuardianDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), id)
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		if !canViewAttempt(r, a, guardians) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(a)
	}
}

// GET /attempts?exam_id=&status=&limit=&offset=
// Callers without attempt:view-all are scoped to their own attempts.
func ListAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		opts := exam.AttemptListOpts{
			ExamID: strings.TrimSpace(r.URL.Query().Get("exam_id")),
			UserID: strings.TrimSpace(r.URL.Query().Get("user_id")),
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if role != "teacher" && role != "admin" {
			opts.UserID = sub
		}
		list, err := store.ListAttempts(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(list)
	}
}

func ownAttempt(r *http.Request, store exam.Store, attemptID string) bool {
	a, err := store.GetAttempt(r.Context(), attemptID)
	if err != nil {
		return true // let the handler surface not-found instead of forbidden
	}
	return a.UserID == rbac.SubjectFromContext(r.Context())
}

// canViewAttempt: graders see everything, owners see their own, parents
// see the attempts of students they are linked to in the guardians table.
func canViewAttempt(r *http.Request, a exam.Attempt, guardians GuardianDirectory) bool {
	role := rbac.RoleFromContext(r.Context())
	sub := rbac.SubjectFromContext(r.Context())
	if role == "teacher" || role == "admin" {
		return true
	}
	if a.UserID == sub {
		return true
	}
	if role == "parent" && guardians != nil {
		ok, err := guardians.Oversees(r.Context(), sub, a.UserID)
		return err == nil && ok
	}
	return false
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound),
		errors.Is(err, exam.ErrAttemptNotFound),
		errors.Is(err, exam.ErrResultNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrAlreadySubmitted),
		errors.Is(err, exam.ErrNotSubmitted),
		errors.Is(err, exam.ErrExamHasAttempts):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
