package exam

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/classmark/classmark-engine/internal/grading"
	"github.com/classmark/classmark-engine/internal/result"
)

// EventSink receives a notification after an attempt is evaluated.
// Delivery is best-effort; a sink failure never rolls back finalization.
type EventSink interface {
	AttemptEvaluated(ctx context.Context, rec result.Record) error
}

// Finalizer orchestrates scoring, manual-mark merge, aggregation and the
// evaluated-state transition for an attempt.
type Finalizer struct {
	store  Store
	events EventSink // optional
	now    func() time.Time
}

func NewFinalizer(store Store, events EventSink) *Finalizer {
	return &Finalizer{store: store, events: events, now: time.Now}
}

// Finalize recomputes and persists the authoritative result for a
// submitted (or already evaluated) attempt. Re-finalization is legal and
// idempotent: identical inputs produce identical record contents apart
// from the evaluation timestamp.
func (f *Finalizer) Finalize(ctx context.Context, attemptID string) (result.Record, error) {
	a, err := f.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return result.Record{}, err
	}
	if a.Status != StatusSubmitted && a.Status != StatusEvaluated {
		return result.Record{}, fmt.Errorf("finalize attempt %s: %w", attemptID, ErrNotSubmitted)
	}
	ex, err := f.store.GetExamFull(ctx, a.ExamID)
	if err != nil {
		return result.Record{}, err
	}
	marks, err := f.store.GetManualMarks(ctx, attemptID)
	if err != nil {
		return result.Record{}, err
	}

	breakdown := BuildBreakdown(ex.Questions, a.Responses, marks)
	if pending := PendingReview(breakdown); len(pending) > 0 {
		return result.Record{}, &IncompleteManualReviewError{QuestionIDs: pending}
	}

	rec := result.Record{
		AttemptID:   a.ID,
		Summary:     result.Aggregate(breakdown, ex.PassThreshold),
		Breakdown:   breakdown,
		EvaluatedAt: f.now().Unix(),
	}
	if err := f.store.FinalizeResult(ctx, attemptID, rec); err != nil {
		return result.Record{}, fmt.Errorf("persist result for attempt %s: %w", attemptID, err)
	}
	if f.events != nil {
		if err := f.events.AttemptEvaluated(ctx, rec); err != nil {
			log.Printf("attempt %s evaluated event: %v", attemptID, err)
		}
	}
	return rec, nil
}

// Preview scores the attempt as finalize would but persists nothing, so
// review surfaces can show provisional per-question results (with pending
// manual-review entries) before evaluation.
func (f *Finalizer) Preview(ctx context.Context, attemptID string) (result.Record, error) {
	a, err := f.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return result.Record{}, err
	}
	ex, err := f.store.GetExamFull(ctx, a.ExamID)
	if err != nil {
		return result.Record{}, err
	}
	marks, err := f.store.GetManualMarks(ctx, attemptID)
	if err != nil {
		return result.Record{}, err
	}
	breakdown := BuildBreakdown(ex.Questions, a.Responses, marks)
	return result.Record{
		AttemptID: a.ID,
		Summary:   result.Aggregate(breakdown, ex.PassThreshold),
		Breakdown: breakdown,
	}, nil
}

// MarkInput is one human-entered grade as supplied by the marking UI.
type MarkInput struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score,omitempty"`
	Feedback string  `json:"feedback,omitempty"`
}

// ApplyMarks upserts manual marks for an attempt and optionally finalizes
// in the same call. Marks are accepted only for questions the scorer
// routes to manual review; anything else is rejected so a grader cannot
// silently override an auto-graded question.
func (f *Finalizer) ApplyMarks(ctx context.Context, attemptID string, items map[string]MarkInput, gradedBy string, finalize bool) (*result.Record, error) {
	a, err := f.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusSubmitted && a.Status != StatusEvaluated {
		return nil, fmt.Errorf("mark attempt %s: %w", attemptID, ErrNotSubmitted)
	}
	ex, err := f.store.GetExamFull(ctx, a.ExamID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Question, len(ex.Questions))
	for _, q := range ex.Questions {
		byID[q.ID] = q
	}

	now := f.now().Unix()
	marks := make([]ManualMark, 0, len(items))
	for qid, in := range items {
		q, ok := byID[qid]
		if !ok {
			return nil, fmt.Errorf("question %s not in exam %s", qid, ex.ID)
		}
		if !manuallyGradable(q) {
			return nil, fmt.Errorf("question %s is auto-graded, manual mark not allowed", qid)
		}
		maxScore := in.MaxScore
		if maxScore <= 0 {
			maxScore = q.Marks
		}
		marks = append(marks, ManualMark{
			QuestionID: qid,
			Score:      in.Score,
			MaxScore:   maxScore,
			Feedback:   in.Feedback,
			GradedBy:   gradedBy,
			GradedAt:   now,
		})
	}
	if err := f.store.UpsertManualMarks(ctx, attemptID, marks); err != nil {
		return nil, fmt.Errorf("save marks for attempt %s: %w", attemptID, err)
	}
	if !finalize {
		return nil, nil
	}
	rec, err := f.Finalize(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkingItem is one question as shown on the marking surface: the full
// answer key is visible here, unlike student-facing views.
type MarkingItem struct {
	QuestionID string       `json:"question_id"`
	Type       string       `json:"type"`
	PromptHTML string       `json:"prompt_html,omitempty"`
	Marks      float64      `json:"marks"`
	Key        *grading.Key `json:"key,omitempty"`
	Response   interface{}  `json:"response,omitempty"`
	Entry      result.Entry `json:"entry"`
	ManualMark *ManualMark  `json:"manual_mark,omitempty"`
}

func (f *Finalizer) MarkingItems(ctx context.Context, attemptID string) ([]MarkingItem, error) {
	a, err := f.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	ex, err := f.store.GetExamFull(ctx, a.ExamID)
	if err != nil {
		return nil, err
	}
	marks, err := f.store.GetManualMarks(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	items := make([]MarkingItem, 0, len(ex.Questions))
	for _, q := range ex.Questions {
		entry := grading.Score(gradingView(q), a.Responses[q.ID])
		item := MarkingItem{
			QuestionID: q.ID,
			Type:       q.Type,
			PromptHTML: q.PromptHTML,
			Marks:      q.Marks,
			Key:        q.Key,
			Response:   a.Responses[q.ID],
			Entry:      entry,
		}
		if m, ok := marks[q.ID]; ok {
			mm := m
			item.ManualMark = &mm
			item.Entry = applyManual(entry, m)
		}
		items = append(items, item)
	}
	return items, nil
}

// BuildBreakdown scores every question in exam order and merges manual
// marks over entries flagged for review. Pure; the merge never touches
// persistence.
func BuildBreakdown(questions []Question, responses map[string]interface{}, marks map[string]ManualMark) []result.Entry {
	out := make([]result.Entry, 0, len(questions))
	for _, q := range questions {
		e := grading.Score(gradingView(q), responses[q.ID])
		if m, ok := marks[q.ID]; ok && e.NeedsReview {
			e = applyManual(e, m)
		}
		out = append(out, e)
	}
	return out
}

// PendingReview lists question ids still awaiting a manual mark.
func PendingReview(breakdown []result.Entry) []string {
	var ids []string
	for _, e := range breakdown {
		if e.NeedsReview {
			ids = append(ids, e.QuestionID)
		}
	}
	return ids
}

// applyManual overwrites an entry with the human-entered grade: the
// manual mark always wins and clears the review flag. The awarded score
// stays within the question's point range; full marks count as correct.
func applyManual(e result.Entry, m ManualMark) result.Entry {
	score := m.Score
	if score < 0 {
		score = 0
	}
	if score > e.MaxScore {
		score = e.MaxScore
	}
	e.Score = score
	e.IsCorrect = e.MaxScore > 0 && score >= e.MaxScore
	e.NeedsReview = false
	return e
}

// manuallyGradable reports whether the question can only be graded by a
// human: extended text always, and anything whose answer key is missing
// (the scorer flags those as a content gap).
func manuallyGradable(q Question) bool {
	return q.Type == grading.TypeExtendedText || q.Key == nil
}

func gradingView(q Question) grading.Q {
	return grading.Q{ID: q.ID, Type: q.Type, Marks: q.Marks, Key: q.Key}
}
