package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/grading"
)

func markingRouter(fin *exam.Finalizer) http.Handler {
	r := chi.NewRouter()
	r.Get("/attempts/{attemptID}/marking", GetMarkingItemsHandler(fin))
	r.Post("/attempts/{attemptID}/marks", ApplyMarksHandler(fin))
	r.Post("/attempts/{attemptID}/finalize", FinalizeAttemptHandler(fin))
	return r
}

func seedMarkingAttempt(t *testing.T, store exam.Store) exam.Attempt {
	t.Helper()
	ctx := context.Background()
	err := store.PutExam(ctx, exam.Exam{
		ID:            "exam-1",
		PassThreshold: 50,
		Questions: []exam.Question{
			{ID: "q1", Type: grading.TypeSingleChoice, Marks: 2, Key: &grading.Key{OptionID: "b"}},
			{ID: "q2", Type: grading.TypeExtendedText, Marks: 5},
		},
	})
	if err != nil {
		t.Fatalf("put exam: %v", err)
	}
	a, err := store.NewAttempt(ctx, "exam-1", "student-1")
	if err != nil {
		t.Fatalf("new attempt: %v", err)
	}
	if _, err := store.SaveResponses(ctx, a.ID, map[string]interface{}{"q1": "b", "q2": "essay"}); err != nil {
		t.Fatalf("save responses: %v", err)
	}
	if _, err := store.Submit(ctx, a.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return a
}

func TestFinalizeHandlerPendingReviewConflict(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	router := markingRouter(exam.NewFinalizer(store, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/attempts/"+a.ID+"/finalize", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	var body struct {
		Error       string   `json:"error"`
		QuestionIDs []string `json:"question_ids"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.QuestionIDs) != 1 || body.QuestionIDs[0] != "q2" {
		t.Fatalf("question_ids = %v, want [q2]", body.QuestionIDs)
	}
}

func TestFinalizeHandlerUnknownAttempt(t *testing.T) {
	router := markingRouter(exam.NewFinalizer(exam.NewInMemoryStore(), nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/attempts/nope/finalize", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestApplyMarksHandlerFinalizes(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	router := markingRouter(exam.NewFinalizer(store, nil))

	body := `{"items":{"q2":{"score":4,"feedback":"good"}},"finalize":true}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/attempts/"+a.ID+"/marks", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	var rec struct {
		Total      float64 `json:"total"`
		Percentage float64 `json:"percentage"`
		Passed     bool    `json:"passed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Total != 6 || rec.Percentage != 85.71 || !rec.Passed {
		t.Fatalf("got %+v, want 6 points, 85.71%%, passed", rec)
	}

	att, _ := store.GetAttempt(context.Background(), a.ID)
	if att.Status != exam.StatusEvaluated {
		t.Fatalf("attempt status = %q, want evaluated", att.Status)
	}
}

func TestApplyMarksHandlerSaveOnly(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	router := markingRouter(exam.NewFinalizer(store, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/attempts/"+a.ID+"/marks",
		strings.NewReader(`{"items":{"q2":{"score":4}}}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "marks saved") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	att, _ := store.GetAttempt(context.Background(), a.ID)
	if att.Status != exam.StatusSubmitted {
		t.Fatalf("save-only must not change status, got %q", att.Status)
	}
}

func TestGetMarkingItemsHandler(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	router := markingRouter(exam.NewFinalizer(store, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/attempts/"+a.ID+"/marking", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var items []exam.MarkingItem
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 2 || items[0].Key == nil {
		t.Fatalf("expected 2 items with keys visible, got %+v", items)
	}
}
