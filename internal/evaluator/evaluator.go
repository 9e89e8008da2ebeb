package evaluator

import (
	"context"

	"github.com/seantiz/evalengine/internal/model"
)

// Evaluator scores a set of named parameters. Implementations may block for
// as long as the evaluation takes; ctx carries cancellation and any deadline
// the engine was configured with.
type Evaluator interface {
	Evaluate(ctx context.Context, params model.ParamMap) (model.ScoreMap, error)
}

// Func adapts an ordinary function to the Evaluator interface.
type Func func(ctx context.Context, params model.ParamMap) (model.ScoreMap, error)

// Evaluate calls f(ctx, params).
func (f Func) Evaluate(ctx context.Context, params model.ParamMap) (model.ScoreMap, error) {
	return f(ctx, params)
}
