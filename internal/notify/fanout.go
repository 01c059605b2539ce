package notify

import (
	"context"
	"errors"

	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/result"
)

// Fanout delivers to every sink; failures are collected, not short-circuited.
type Fanout []exam.EventSink

func (f Fanout) AttemptEvaluated(ctx context.Context, rec result.Record) error {
	var errs []error
	for _, s := range f {
		if err := s.AttemptEvaluated(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
