package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/classmark/classmark-engine/internal/result"
)

const typeAttemptEvaluated = "attempt.evaluated"

// EventLog appends evaluation events to the event_log table so downstream
// consumers (report generation, parent notifications) can tail them.
type EventLog struct {
	db *sql.DB
}

func NewEventLog(db *sql.DB) *EventLog { return &EventLog{db: db} }

func (l *EventLog) AttemptEvaluated(ctx context.Context, rec result.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typeAttemptEvaluated, rec.AttemptID, string(data), time.Now().Unix())
	return err
}
