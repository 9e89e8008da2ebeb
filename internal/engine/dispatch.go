package engine

import (
	"context"

	"github.com/seantiz/evalengine/internal/model"
)

// Outcome classifies the result of one poll cycle.
type Outcome string

// Poll cycle outcomes.
const (
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeNoTask        Outcome = "no_task"
	OutcomeUnrecognized  Outcome = "unrecognized"
	OutcomeSubmitted     Outcome = "submitted"
	OutcomeFailed        Outcome = "evaluation_failed"
	OutcomeReset         Outcome = "reset"
	OutcomePublishFailed Outcome = "publish_failed"
	OutcomeInterrupted   Outcome = "interrupted"
)

// handler computes the next state for a task. It does no publishing; the
// caller applies the state and performs the write.
type handler func(ctx context.Context, e *Engine, cur model.State, task model.Task) (model.State, Outcome)

var handlers = map[model.Command]handler{
	model.CommandRun:      handleRun,
	model.CommandGetReady: handleGetReady,
}

func handleRun(ctx context.Context, e *Engine, cur model.State, task model.Task) (model.State, Outcome) {
	scores, err := e.evaluate(ctx, task.Payload)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("evaluation failed", "error", err)
		}
		return cur.Fail(err), OutcomeFailed
	}
	return cur.Submit(scores), OutcomeSubmitted
}

func handleGetReady(_ context.Context, _ *Engine, cur model.State, _ model.Task) (model.State, Outcome) {
	return cur.Reset(), OutcomeReset
}
