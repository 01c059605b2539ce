package exam

import "github.com/classmark/classmark-engine/internal/grading"

type Choice struct {
	ID        string `json:"id,omitempty"`
	LabelHTML string `json:"label_html,omitempty"`
}

// Question content (prompt, choices) is presentation only; scoring reads
// Type, Marks and Key. Questions are immutable once an exam has live
// attempts.
type Question struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"` // single_choice, multi_choice, short_text, numeric, boolean, ordering, matching, extended_text
	PromptHTML string       `json:"prompt_html,omitempty"`
	Choices    []Choice     `json:"choices,omitempty"`
	Marks      float64      `json:"marks"`
	Key        *grading.Key `json:"key,omitempty"`
}

type Exam struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	PassThreshold float64    `json:"pass_threshold,omitempty"` // percentage; 0 means default
	Questions     []Question `json:"questions"`
	CreatedAt     int64      `json:"created_at,omitempty"`
}

// Attempt lifecycle. Transitions are forward-only; a result record exists
// if and only if the attempt is evaluated.
const (
	StatusStarted   = "started"
	StatusSubmitted = "submitted"
	StatusEvaluated = "evaluated"
)

type Attempt struct {
	ID          string                 `json:"id"`
	ExamID      string                 `json:"exam_id"`
	UserID      string                 `json:"user_id"`
	Status      string                 `json:"status"`
	Responses   map[string]interface{} `json:"responses"` // questionID -> response payload
	StartedAt   int64                  `json:"started_at"`
	SubmittedAt int64                  `json:"submitted_at,omitempty"`
	EvaluatedAt int64                  `json:"evaluated_at,omitempty"`
}

// ManualMark is a human-entered grade for a question the scorer flagged
// for review. It always wins over the automatic score for that question.
type ManualMark struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Feedback   string  `json:"feedback,omitempty"`
	GradedBy   string  `json:"graded_by,omitempty"`
	GradedAt   int64   `json:"graded_at,omitempty"`
}
