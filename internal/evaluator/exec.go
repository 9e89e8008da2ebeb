package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/seantiz/evalengine/internal/model"
)

// Exec runs an external program per evaluation. Parameters are written to its
// stdin as a JSON object and scores are read from stdout as a JSON object.
type Exec struct {
	Bin  string
	Args []string
}

// NewExec splits a command line on whitespace. No shell is involved.
func NewExec(command string) (*Exec, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("exec evaluator: command is empty")
	}
	return &Exec{Bin: fields[0], Args: fields[1:]}, nil
}

// Evaluate runs the program and decodes its scores.
func (e *Exec) Evaluate(ctx context.Context, params model.ParamMap) (model.ScoreMap, error) {
	if params == nil {
		params = model.ParamMap{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Bin, e.Args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("evaluator process failed: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}

	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty evaluator stdout; stderr=%s", strings.TrimSpace(stderr.String()))
	}

	var scores model.ScoreMap
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("invalid evaluator scores json: %w; raw=%s", err, raw)
	}
	return scores, nil
}
