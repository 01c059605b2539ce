package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/classmark/classmark-engine/internal/result"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrNotSubmitted     = errors.New("attempt not submitted")
	ErrExamHasAttempts  = errors.New("exam has attempts; questions are immutable")
)

// IncompleteManualReviewError reports which questions still await a manual
// mark. Finalization refuses to proceed while any remain; the workflow is
// the authoritative guard even when the UI already blocks the action.
type IncompleteManualReviewError struct {
	QuestionIDs []string
}

func (e *IncompleteManualReviewError) Error() string {
	return fmt.Sprintf("manual review incomplete for questions: %s", strings.Join(e.QuestionIDs, ", "))
}

type AttemptListOpts struct {
	ExamID string
	UserID string
	Status string
	Limit  int
	Offset int
}

// Store is the persistence contract for exams, attempts, manual marks and
// result records. GetExam is student-safe (answer keys stripped);
// GetExamFull is for grading and marking surfaces only.
type Store interface {
	// PutExam creates or updates an exam. Once any attempt exists for the
	// exam its question list is frozen (ErrExamHasAttempts); rewriting
	// questions under live attempts would change what re-finalization
	// recomputes. Title and threshold stay editable.
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	GetExamFull(ctx context.Context, id string) (Exam, error)

	NewAttempt(ctx context.Context, examID, userID string) (Attempt, error)
	SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error)
	Submit(ctx context.Context, attemptID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	UpsertManualMarks(ctx context.Context, attemptID string, marks []ManualMark) error
	GetManualMarks(ctx context.Context, attemptID string) (map[string]ManualMark, error)

	GetResult(ctx context.Context, attemptID string) (result.Record, error)
	ListResults(ctx context.Context, examID string) ([]result.Record, error)

	// FinalizeResult upserts the record (keyed by attempt id) and advances
	// the attempt to evaluated in one transaction. On failure the attempt
	// keeps its pre-finalize state and no partial record is visible.
	FinalizeResult(ctx context.Context, attemptID string, rec result.Record) error
}
