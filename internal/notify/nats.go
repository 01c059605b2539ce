package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/classmark/classmark-engine/internal/result"
)

// NATSPublisher pushes evaluated results onto a NATS subject for services
// outside this process (dashboards, SIS sync).
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("classmark-engine"))
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = typeAttemptEvaluated
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) AttemptEvaluated(_ context.Context, rec result.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NATSPublisher) Close() { p.conn.Close() }
