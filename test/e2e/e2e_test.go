// Package e2e builds the evalengine binary and drives it through the shared
// directories the way a controller would.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
	settleTimeout  = 5 * time.Second
	pollInterval   = 25 * time.Millisecond

	inputDocument  = "master.json"
	outputDocument = "engine.json"
)

const targetsYAML = `objectives:
  - name: fit
    param: x
    mean: 10
    std: 2
  - name: spread
    param: y
    mean: 0
    std: 0.5
`

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// engineProc is a running evalengine subprocess and the directories it shares.
type engineProc struct {
	cmd     *exec.Cmd
	stdout  *lockedBuffer
	url     string
	inputs  string
	outputs string
}

// record mirrors the published engine document.
type record struct {
	ID      string             `json:"id"`
	Status  string             `json:"status"`
	Payload map[string]float64 `json:"payload"`
	Error   string             `json:"error"`
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "evalengine-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "evalengine")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/evalengine")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root")
		}
		dir = parent
	}
}

func startEngine(t *testing.T, binary string) *engineProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ep := &engineProc{
		stdout:  &lockedBuffer{},
		url:     "http://" + addr,
		inputs:  t.TempDir(),
		outputs: t.TempDir(),
	}

	targets := filepath.Join(t.TempDir(), "targets.yaml")
	if err := os.WriteFile(targets, []byte(targetsYAML), 0o644); err != nil {
		t.Fatalf("write targets: %v", err)
	}

	cmd := exec.Command(binary, "serve")
	cmd.Env = append(os.Environ(),
		"DY_SIDECAR_PATH_INPUTS="+ep.inputs,
		"DY_SIDECAR_PATH_OUTPUTS="+ep.outputs,
		"EVALENGINE_POLL_INTERVAL="+pollInterval.String(),
		"EVALENGINE_EVALUATOR=targets",
		"EVALENGINE_EVALUATOR_CONFIG="+targets,
		"EVALENGINE_LISTEN_ADDR="+addr,
		"EVALENGINE_DB_PATH="+filepath.Join(t.TempDir(), "journal.db"),
		"EVALENGINE_LOG_LEVEL=debug",
	)
	cmd.Stdout = ep.stdout
	cmd.Stderr = ep.stdout
	ep.cmd = cmd

	if err := cmd.Start(); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ep.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return ep
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("engine did not become ready within %v\nstdout:\n%s", startupTimeout, ep.stdout.String())
	return nil
}

// readRecord returns the published record, or false if it is absent or
// caught mid-write.
func (ep *engineProc) readRecord() (record, bool) {
	var rec record
	data, err := os.ReadFile(filepath.Join(ep.outputs, outputDocument))
	if err != nil || json.Unmarshal(data, &rec) != nil {
		return record{}, false
	}
	return rec, true
}

// waitRecord polls the published record until cond holds.
func (ep *engineProc) waitRecord(t *testing.T, cond func(record) bool) record {
	t.Helper()
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		if rec, ok := ep.readRecord(); ok && cond(rec) {
			return rec
		}
		time.Sleep(pollInterval)
	}
	rec, _ := ep.readRecord()
	t.Fatalf("record did not settle, last = %+v\nstdout:\n%s", rec, ep.stdout.String())
	return record{}
}

// assign writes a coordination document giving the engine one task.
func (ep *engineProc) assign(t *testing.T, engineID, command string, payload map[string]float64) {
	t.Helper()
	task := map[string]any{"command": command}
	if payload != nil {
		task["payload"] = payload
	}
	doc := map[string]any{
		"engines": map[string]any{
			engineID: map[string]any{"task": task},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	ep.writeInput(t, data)
}

func (ep *engineProc) writeInput(t *testing.T, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ep.inputs, inputDocument), data, 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
