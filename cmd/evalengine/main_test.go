package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/evalengine/internal/config"
	"github.com/seantiz/evalengine/internal/coord"
	"github.com/seantiz/evalengine/internal/model"
)

const testTargets = `objectives:
  - name: fit
    param: x
    mean: 10
    std: 2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvalCommand(t *testing.T) {
	dir := t.TempDir()
	targets := writeFile(t, dir, "targets.yaml", testTargets)
	params := writeFile(t, dir, "params.json", `{"x": 14}`)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"eval", "--evaluator", "targets", "--config", targets, "--params", params})

	require.NoError(t, cmd.Execute())

	var scores model.ScoreMap
	require.NoError(t, json.Unmarshal(out.Bytes(), &scores))
	assert.InDelta(t, 2.0, scores["fit"], 1e-9)
}

func TestEvalCommandStdin(t *testing.T) {
	targets := writeFile(t, t.TempDir(), "targets.yaml", testTargets)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(`{"x": 10}`))
	cmd.SetArgs([]string{"eval", "--evaluator", "targets", "--config", targets, "--params", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"fit": 0`)
}

func TestEvalCommandUsesEnvironment(t *testing.T) {
	dir := t.TempDir()
	targets := writeFile(t, dir, "targets.yaml", testTargets)
	params := writeFile(t, dir, "params.json", `{"x": 16}`)

	t.Setenv("EVALENGINE_EVALUATOR", "TARGETS")
	t.Setenv("EVALENGINE_EVALUATOR_CONFIG", targets)
	t.Setenv("EVALENGINE_EVALUATOR_CMD", "")
	t.Setenv("EVALENGINE_EVAL_TIMEOUT", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"eval", "--params", params})

	require.NoError(t, cmd.Execute())

	var scores model.ScoreMap
	require.NoError(t, json.Unmarshal(out.Bytes(), &scores))
	assert.InDelta(t, 3.0, scores["fit"], 1e-9)
}

func TestEvalCommandFlagsOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	targets := writeFile(t, dir, "targets.yaml", testTargets)
	params := writeFile(t, dir, "params.json", `{"x": 10}`)

	t.Setenv("EVALENGINE_EVALUATOR", "exec")
	t.Setenv("EVALENGINE_EVALUATOR_CONFIG", filepath.Join(dir, "absent.yaml"))
	t.Setenv("EVALENGINE_EVAL_TIMEOUT", "")

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"eval", "--evaluator", "Targets", "--config", targets, "--params", params})

	assert.NoError(t, cmd.Execute())
}

func TestEvalCommandInvalidTimeoutEnv(t *testing.T) {
	params := writeFile(t, t.TempDir(), "params.json", `{"x": 10}`)
	t.Setenv("EVALENGINE_EVAL_TIMEOUT", "whenever")

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"eval", "--params", params})

	assert.ErrorContains(t, cmd.Execute(), "EVALENGINE_EVAL_TIMEOUT")
}

func TestEvalCommandErrors(t *testing.T) {
	dir := t.TempDir()
	targets := writeFile(t, dir, "targets.yaml", testTargets)
	badParams := writeFile(t, dir, "bad.json", `{"x":`)
	missingParam := writeFile(t, dir, "other.json", `{"y": 1}`)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown evaluator", []string{"eval", "--evaluator", "nope", "--params", badParams}},
		{"params file missing", []string{"eval", "--evaluator", "targets", "--config", targets, "--params", filepath.Join(dir, "absent.json")}},
		{"params malformed", []string{"eval", "--evaluator", "targets", "--config", targets, "--params", badParams}},
		{"evaluation fails", []string{"eval", "--evaluator", "targets", "--config", targets, "--params", missingParam}},
		{"params flag required", []string{"eval", "--evaluator", "targets", "--config", targets}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestServePublishesAndStops(t *testing.T) {
	inputs, outputs := t.TempDir(), t.TempDir()
	targets := writeFile(t, t.TempDir(), "targets.yaml", testTargets)

	cfg := config.Config{
		InputsDir:       inputs,
		OutputsDir:      outputs,
		PollInterval:    20 * time.Millisecond,
		Evaluator:       "targets",
		EvaluatorConfig: targets,
		DBPath:          filepath.Join(t.TempDir(), "journal.db"),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger) }()

	recordPath := filepath.Join(outputs, coord.OutputDocument)
	var rec model.Record
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(recordPath)
		return err == nil && json.Unmarshal(data, &rec) == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, model.StatusReady, rec.Status)
	assert.NotEmpty(t, rec.ID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServeUnknownEvaluator(t *testing.T) {
	cfg := config.Config{
		InputsDir:  t.TempDir(),
		OutputsDir: t.TempDir(),
		Evaluator:  "nope",
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	assert.Error(t, serve(context.Background(), cfg, logger))
}
