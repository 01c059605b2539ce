package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classmark/classmark-engine/internal/result"
)

// SQLStore persists exams, attempts, marks and results via database/sql.
// Works against both drivers wired in internal/db (sqlite, postgres);
// both accept $1-style placeholders.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	var stored string
	err = s.db.QueryRowContext(ctx, `SELECT questions_json FROM exams WHERE id=$1`, e.ID).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil && stored != string(qj) {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM attempts WHERE exam_id=$1`, e.ID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrExamHasAttempts
		}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (id,title,pass_threshold,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, pass_threshold=EXCLUDED.pass_threshold, questions_json=EXCLUDED.questions_json`,
		e.ID, e.Title, e.PassThreshold, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.GetExamFull(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	// answer keys never leave the server on the student path
	for i := range e.Questions {
		e.Questions[i].Key = nil
	}
	return e, nil
}

func (s *SQLStore) GetExamFull(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,pass_threshold,questions_json,created_at FROM exams WHERE id=$1`, id)
	var e Exam
	var qjson string
	if err := row.Scan(&e.ID, &e.Title, &e.PassThreshold, &qjson, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) NewAttempt(ctx context.Context, examID, userID string) (Attempt, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrExamNotFound
		}
		return Attempt{}, err
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    StatusStarted,
		Responses: map[string]interface{}{},
		StartedAt: time.Now().Unix(),
	}
	respJSON, _ := json.Marshal(a.Responses)
	_, err := s.db.ExecContext(ctx, `INSERT INTO attempts (id,exam_id,user_id,status,responses_json,started_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ExamID, a.UserID, a.Status, string(respJSON), a.StartedAt)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusStarted {
		return Attempt{}, ErrAlreadySubmitted
	}
	if a.Responses == nil {
		a.Responses = map[string]interface{}{}
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	buf, _ := json.Marshal(a.Responses)
	if _, err := s.db.ExecContext(ctx, `UPDATE attempts SET responses_json=$1 WHERE id=$2`, string(buf), attemptID); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) Submit(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch a.Status {
	case StatusSubmitted, StatusEvaluated:
		return a, nil // forward-only; submit is idempotent
	}
	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, `UPDATE attempts SET status=$1, submitted_at=$2 WHERE id=$3`,
		StatusSubmitted, now, attemptID); err != nil {
		return Attempt{}, err
	}
	a.Status = StatusSubmitted
	a.SubmittedAt = now
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,user_id,status,responses_json,started_at,
		COALESCE(submitted_at,0),COALESCE(evaluated_at,0) FROM attempts WHERE id=$1`, id)
	var a Attempt
	var rjson string
	if err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &rjson, &a.StartedAt, &a.SubmittedAt, &a.EvaluatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
		a.Responses = map[string]interface{}{}
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT id,exam_id,user_id,status,responses_json,started_at,
		COALESCE(submitted_at,0),COALESCE(evaluated_at,0) FROM attempts WHERE 1=1`
	args := []interface{}{}
	n := 0
	add := func(clause string, v interface{}) {
		n++
		q += fmt.Sprintf(" AND %s=$%d", clause, n)
		args = append(args, v)
	}
	if opts.ExamID != "" {
		add("exam_id", opts.ExamID)
	}
	if opts.UserID != "" {
		add("user_id", opts.UserID)
	}
	if opts.Status != "" {
		add("status", opts.Status)
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d OFFSET %d", limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var rjson string
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &rjson, &a.StartedAt, &a.SubmittedAt, &a.EvaluatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
			a.Responses = map[string]interface{}{}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertManualMarks(ctx context.Context, attemptID string, marks []ManualMark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, m := range marks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO manual_marks (attempt_id,question_id,score,max_score,feedback,graded_by,graded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (attempt_id,question_id) DO UPDATE SET score=EXCLUDED.score, max_score=EXCLUDED.max_score,
				feedback=EXCLUDED.feedback, graded_by=EXCLUDED.graded_by, graded_at=EXCLUDED.graded_at`,
			attemptID, m.QuestionID, m.Score, m.MaxScore, m.Feedback, m.GradedBy, m.GradedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetManualMarks(ctx context.Context, attemptID string) (map[string]ManualMark, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question_id,score,max_score,feedback,graded_by,graded_at
		FROM manual_marks WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]ManualMark{}
	for rows.Next() {
		m := ManualMark{}
		if err := rows.Scan(&m.QuestionID, &m.Score, &m.MaxScore, &m.Feedback, &m.GradedBy, &m.GradedAt); err != nil {
			return nil, err
		}
		out[m.QuestionID] = m
	}
	return out, rows.Err()
}

func (s *SQLStore) GetResult(ctx context.Context, attemptID string) (result.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT attempt_id,total,max_total,percentage,passed,pass_threshold,breakdown_json,evaluated_at
		FROM results WHERE attempt_id=$1`, attemptID)
	return scanResult(row)
}

func (s *SQLStore) ListResults(ctx context.Context, examID string) ([]result.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.attempt_id,r.total,r.max_total,r.percentage,r.passed,r.pass_threshold,r.breakdown_json,r.evaluated_at
		FROM results r JOIN attempts a ON a.id = r.attempt_id
		WHERE a.exam_id=$1 ORDER BY r.evaluated_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []result.Record
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FinalizeResult runs the upsert and the status transition in one
// transaction: either the attempt becomes evaluated with its record
// visible, or nothing changes.
func (s *SQLStore) FinalizeResult(ctx context.Context, attemptID string, rec result.Record) error {
	buf, err := result.MarshalBreakdown(rec.Breakdown)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO results (attempt_id,total,max_total,percentage,passed,pass_threshold,breakdown_json,evaluated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (attempt_id) DO UPDATE SET total=EXCLUDED.total, max_total=EXCLUDED.max_total,
			percentage=EXCLUDED.percentage, passed=EXCLUDED.passed, pass_threshold=EXCLUDED.pass_threshold,
			breakdown_json=EXCLUDED.breakdown_json, evaluated_at=EXCLUDED.evaluated_at`,
		rec.AttemptID, rec.Total, rec.MaxTotal, rec.Percentage, rec.Passed, rec.PassThreshold, string(buf), rec.EvaluatedAt); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE attempts SET status=$1, evaluated_at=$2 WHERE id=$3 AND status IN ($4,$5)`,
		StatusEvaluated, rec.EvaluatedAt, attemptID, StatusSubmitted, StatusEvaluated)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotSubmitted
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (result.Record, error) {
	var rec result.Record
	var bjson string
	if err := row.Scan(&rec.AttemptID, &rec.Total, &rec.MaxTotal, &rec.Percentage, &rec.Passed,
		&rec.PassThreshold, &bjson, &rec.EvaluatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result.Record{}, ErrResultNotFound
		}
		return result.Record{}, err
	}
	// stored breakdowns may predate the canonical field names
	rec.Breakdown = result.NormalizeAll([]byte(bjson))
	return rec, nil
}
