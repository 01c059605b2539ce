package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/rbac"
)

// fakeGuardians links each parent id to a fixed student set.
type fakeGuardians map[string][]string

func (f fakeGuardians) Oversees(_ context.Context, parentID, studentID string) (bool, error) {
	for _, sid := range f[parentID] {
		if sid == studentID {
			return true, nil
		}
	}
	return false, nil
}

func asRole(r *http.Request, sub, role string) *http.Request {
	ctx := rbac.WithSubject(r.Context(), sub)
	ctx = rbac.WithRole(ctx, role)
	return r.WithContext(ctx)
}

func resultRouter(store exam.Store, fin *exam.Finalizer, guardians GuardianDirectory) http.Handler {
	r := chi.NewRouter()
	r.Get("/attempts/{attemptID}/result", GetResultHandler(store, fin, guardians))
	return r
}

// Evaluates the seeded attempt so a stored record exists.
func evaluateAttempt(t *testing.T, fin *exam.Finalizer, attemptID string) {
	t.Helper()
	_, err := fin.ApplyMarks(context.Background(), attemptID, map[string]exam.MarkInput{
		"q2": {Score: 4},
	}, "teacher-1", true)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
}

func TestGetResultParentOfLinkedStudent(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	fin := exam.NewFinalizer(store, nil)
	evaluateAttempt(t, fin, a.ID)
	router := resultRouter(store, fin, fakeGuardians{"parent-1": {"student-1"}})

	rr := httptest.NewRecorder()
	req := asRole(httptest.NewRequest(http.MethodGet, "/attempts/"+a.ID+"/result", nil), "parent-1", "parent")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("linked parent status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	var view struct {
		AttemptID string `json:"attempt_id"`
		Passed    bool   `json:"passed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.AttemptID != a.ID || !view.Passed {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestGetResultParentOfUnlinkedStudent(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	fin := exam.NewFinalizer(store, nil)
	evaluateAttempt(t, fin, a.ID)
	router := resultRouter(store, fin, fakeGuardians{"parent-1": {"someone-else"}})

	rr := httptest.NewRecorder()
	req := asRole(httptest.NewRequest(http.MethodGet, "/attempts/"+a.ID+"/result", nil), "parent-1", "parent")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unlinked parent status = %d, want 403", rr.Code)
	}
}

func TestGetResultOwnerStudent(t *testing.T) {
	store := exam.NewInMemoryStore()
	a := seedMarkingAttempt(t, store)
	fin := exam.NewFinalizer(store, nil)
	evaluateAttempt(t, fin, a.ID)
	router := resultRouter(store, fin, fakeGuardians{})

	rr := httptest.NewRecorder()
	req := asRole(httptest.NewRequest(http.MethodGet, "/attempts/"+a.ID+"/result", nil), "student-1", "student")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = asRole(httptest.NewRequest(http.MethodGet, "/attempts/"+a.ID+"/result", nil), "student-2", "student")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("other student status = %d, want 403", rr.Code)
	}
}
