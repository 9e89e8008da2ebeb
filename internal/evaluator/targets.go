package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seantiz/evalengine/internal/model"
)

// Objective compares one parameter against an expected value.
type Objective struct {
	Name  string  `yaml:"name"`
	Param string  `yaml:"param"`
	Mean  float64 `yaml:"mean"`
	Std   float64 `yaml:"std"`
}

// Targets scores each objective as |params[param] - mean| / std, the
// distance from the target in standard deviations.
type Targets struct {
	Objectives []Objective `yaml:"objectives"`
}

// LoadTargets reads a YAML objectives file.
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return ParseTargets(data)
}

// ParseTargets decodes and validates YAML objectives.
func ParseTargets(data []byte) (*Targets, error) {
	var t Targets
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse targets: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Targets) validate() error {
	if len(t.Objectives) == 0 {
		return errors.New("targets: no objectives defined")
	}
	seen := make(map[string]bool, len(t.Objectives))
	for i, o := range t.Objectives {
		if o.Name == "" {
			return fmt.Errorf("targets: objective %d has no name", i)
		}
		if seen[o.Name] {
			return fmt.Errorf("targets: duplicate objective %q", o.Name)
		}
		seen[o.Name] = true
		if o.Param == "" {
			return fmt.Errorf("targets: objective %q has no param", o.Name)
		}
		if !(o.Std > 0) {
			return fmt.Errorf("targets: objective %q has non-positive std %v", o.Name, o.Std)
		}
	}
	return nil
}

// Evaluate returns one score per objective. A parameter missing from params
// fails the whole evaluation.
func (t *Targets) Evaluate(ctx context.Context, params model.ParamMap) (model.ScoreMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(model.ScoreMap, len(t.Objectives))
	for _, o := range t.Objectives {
		v, ok := params[o.Param]
		if !ok {
			return nil, fmt.Errorf("objective %q: missing parameter %q", o.Name, o.Param)
		}
		scores[o.Name] = math.Abs(v-o.Mean) / o.Std
	}
	if err := CheckScores(scores); err != nil {
		return nil, err
	}
	return scores, nil
}
