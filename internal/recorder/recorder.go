// Package recorder turns a finished timer session into a persisted study record.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/clock"
	"github.com/sadopc/studylog/internal/store"
	"github.com/sadopc/studylog/internal/timer"
)

// FinalizeInput is what the rating prompt collects.
type FinalizeInput struct {
	Rating int
	// Topic replaces the selected topic when non-blank.
	Topic string
	Notes string
}

type Recorder struct {
	engine *timer.Engine
	repo   store.Repository
	clock  clock.Clock
	log    hclog.Logger
}

func New(engine *timer.Engine, repo store.Repository, clk clock.Clock, logger hclog.Logger) *Recorder {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Recorder{engine: engine, repo: repo, clock: clk, log: logger.Named("recorder")}
}

// Finalize saves the engine's session with the given rating and resets the engine.
//
// A session without a completed work period is discarded and (nil, nil) is
// returned whatever the rating. Otherwise an out-of-range rating returns
// ErrValidation and leaves the engine untouched so the prompt can be retried.
// When the linked todo disappeared before the save, the session is stored
// without it and the todo step counts as failed.
func (r *Recorder) Finalize(ctx context.Context, in FinalizeInput) (*store.Session, error) {
	s := r.engine.Snapshot()
	if s.CompletedWorkPeriods == 0 || !s.InProgress() {
		r.log.Debug("nothing to record", "completed", s.CompletedWorkPeriods)
		r.engine.Reset()
		return nil, nil
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.Validation("productivity rating %d must be between 1 and 5", in.Rating)
	}
	defer r.engine.Reset()

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = s.Selection.Topic
	}
	elapsed := r.engine.Elapsed()

	input := store.SessionInput{
		SubjectID:             s.Selection.SubjectID,
		Topic:                 topic,
		TodoID:                s.Selection.TodoID,
		DurationMinutes:       int(elapsed / time.Minute),
		WorkSessionsCompleted: s.CompletedWorkPeriods,
		ProductivityRating:    in.Rating,
		Notes:                 strings.TrimSpace(in.Notes),
		CompletedAt:           r.clock.Now().UTC(),
	}
	sess, err := r.repo.CreateSession(ctx, input)
	todoLost := false
	if err != nil && input.TodoID != nil && errors.Is(err, apperrors.ErrValidation) {
		r.log.Warn("todo rejected, saving session without it", "todo", *input.TodoID, "error", err)
		input.TodoID = nil
		todoLost = true
		sess, err = r.repo.CreateSession(ctx, input)
	}
	if err != nil {
		r.log.Error("save session failed", "subject", s.Selection.SubjectID, "error", err)
		return nil, wrapStorage("save session", err)
	}
	r.log.Info("session saved", "id", sess.ID, "minutes", sess.DurationMinutes, "rating", sess.ProductivityRating)

	switch {
	case todoLost:
		r.log.Warn("complete todo failed", "todo", *s.Selection.TodoID, "error", "todo no longer exists")
		r.engine.ClearTodo()
	case s.Selection.TodoID != nil:
		done := true
		if _, err := r.repo.UpdateTodo(ctx, *s.Selection.TodoID, store.TodoPatch{Completed: &done}); err != nil {
			r.log.Warn("complete todo failed", "todo", *s.Selection.TodoID, "error", err)
		} else {
			r.engine.ClearTodo()
		}
	}
	return sess, nil
}

// Skip discards the pending session without saving it.
func (r *Recorder) Skip() {
	s := r.engine.Snapshot()
	if s.InProgress() {
		r.log.Debug("session skipped", "completed", s.CompletedWorkPeriods)
	}
	r.engine.Reset()
}

// wrapStorage labels err as a storage failure unless it already carries a
// category of its own.
func wrapStorage(op string, err error) error {
	if errors.Is(err, apperrors.ErrStorage) || errors.Is(err, apperrors.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperrors.Storage(op, err)
}
