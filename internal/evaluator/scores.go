package evaluator

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/seantiz/evalengine/internal/model"
)

// ErrNonFiniteScore is returned for a score that is NaN or infinite. Such a
// value has no JSON encoding, so it could never be published.
var ErrNonFiniteScore = errors.New("non-finite score")

// CheckScores rejects score maps holding NaN or ±Inf. Names are checked in
// sorted order so the reported one is stable.
func CheckScores(scores model.ScoreMap) error {
	for _, name := range slices.Sorted(maps.Keys(scores)) {
		if v := scores[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q = %v", ErrNonFiniteScore, name, v)
		}
	}
	return nil
}
