package exam

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classmark/classmark-engine/internal/result"
)

// memoryStore backs offline/dev runs and tests. Same semantics as the SQL
// store, including the atomic finalize.
type memoryStore struct {
	mu       sync.RWMutex
	exams    map[string]Exam
	attempts map[string]Attempt
	marks    map[string]map[string]ManualMark // attemptID -> questionID -> mark
	results  map[string]result.Record
}

func NewInMemoryStore() Store {
	return &memoryStore{
		exams:    map[string]Exam{},
		attempts: map[string]Attempt{},
		marks:    map[string]map[string]ManualMark{},
		results:  map[string]result.Record{},
	}
}

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.exams[e.ID]; ok && !questionsEqual(old.Questions, e.Questions) {
		for _, a := range m.attempts {
			if a.ExamID == e.ID {
				return ErrExamHasAttempts
			}
		}
	}
	m.exams[e.ID] = e
	return nil
}

func questionsEqual(a, b []Question) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

func (m *memoryStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := m.GetExamFull(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	qs := make([]Question, len(e.Questions))
	copy(qs, e.Questions)
	for i := range qs {
		qs[i].Key = nil
	}
	e.Questions = qs
	return e, nil
}

func (m *memoryStore) GetExamFull(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *memoryStore) NewAttempt(_ context.Context, examID, userID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return Attempt{}, ErrExamNotFound
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    StatusStarted,
		Responses: map[string]interface{}{},
		StartedAt: time.Now().Unix(),
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) SaveResponses(_ context.Context, attemptID string, resp map[string]interface{}) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status != StatusStarted {
		return Attempt{}, ErrAlreadySubmitted
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	m.attempts[attemptID] = a
	return a, nil
}

func (m *memoryStore) Submit(_ context.Context, attemptID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status == StatusStarted {
		a.Status = StatusSubmitted
		a.SubmittedAt = time.Now().Unix()
		m.attempts[attemptID] = a
	}
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if opts.ExamID != "" && a.ExamID != opts.ExamID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryStore) UpsertManualMarks(_ context.Context, attemptID string, marks []ManualMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byQ := m.marks[attemptID]
	if byQ == nil {
		byQ = map[string]ManualMark{}
		m.marks[attemptID] = byQ
	}
	for _, mark := range marks {
		byQ[mark.QuestionID] = mark
	}
	return nil
}

func (m *memoryStore) GetManualMarks(_ context.Context, attemptID string) (map[string]ManualMark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]ManualMark{}
	for q, mark := range m.marks[attemptID] {
		out[q] = mark
	}
	return out, nil
}

func (m *memoryStore) GetResult(_ context.Context, attemptID string) (result.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.results[attemptID]
	if !ok {
		return result.Record{}, ErrResultNotFound
	}
	return rec, nil
}

func (m *memoryStore) ListResults(_ context.Context, examID string) ([]result.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []result.Record
	for id, rec := range m.results {
		if a, ok := m.attempts[id]; ok && a.ExamID == examID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryStore) FinalizeResult(_ context.Context, attemptID string, rec result.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Status != StatusSubmitted && a.Status != StatusEvaluated {
		return ErrNotSubmitted
	}
	m.results[attemptID] = rec
	a.Status = StatusEvaluated
	a.EvaluatedAt = rec.EvaluatedAt
	m.attempts[attemptID] = a
	return nil
}
