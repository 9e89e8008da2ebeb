package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultEvaluator    = "targets"

	envInputsDir       = "EVALENGINE_INPUTS_DIR"
	envOutputsDir      = "EVALENGINE_OUTPUTS_DIR"
	envSidecarInputs   = "DY_SIDECAR_PATH_INPUTS"
	envSidecarOutputs  = "DY_SIDECAR_PATH_OUTPUTS"
	envPollInterval    = "EVALENGINE_POLL_INTERVAL"
	envWatch           = "EVALENGINE_WATCH"
	envEvaluator       = "EVALENGINE_EVALUATOR"
	envEvaluatorConfig = "EVALENGINE_EVALUATOR_CONFIG"
	envEvaluatorCmd    = "EVALENGINE_EVALUATOR_CMD"
	envEvalTimeout     = "EVALENGINE_EVAL_TIMEOUT"
	envListenAddr      = "EVALENGINE_LISTEN_ADDR"
	envDBPath          = "EVALENGINE_DB_PATH"
	envLogLevel        = "EVALENGINE_LOG_LEVEL"
)

// ErrMissingRoot is returned when the input or output root is not configured.
var ErrMissingRoot = errors.New("shared directory root not configured")

// Config holds application configuration loaded from environment variables.
type Config struct {
	InputsDir       string
	OutputsDir      string
	PollInterval    time.Duration
	Watch           bool
	Evaluator       string
	EvaluatorConfig string
	EvaluatorCmd    string
	EvalTimeout     time.Duration
	ListenAddr      string
	DBPath          string
	LogLevel        slog.Level
}

// EvaluatorSettings selects and configures the evaluation callback. It is
// shared by the polling engine and one-shot evaluation, which needs no
// shared directory roots.
type EvaluatorSettings struct {
	Kind       string
	ConfigPath string
	Command    string
	Timeout    time.Duration
}

// LoadEvaluator reads the evaluator settings from the environment. The kind
// is lower-cased and defaults to "targets".
func LoadEvaluator() (EvaluatorSettings, error) {
	ev := EvaluatorSettings{
		Kind:       defaultEvaluator,
		ConfigPath: os.Getenv(envEvaluatorConfig),
		Command:    os.Getenv(envEvaluatorCmd),
	}
	if v := os.Getenv(envEvaluator); v != "" {
		ev.Kind = NormalizeKind(v)
	}
	if v := os.Getenv(envEvalTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return EvaluatorSettings{}, fmt.Errorf("invalid %s %q: must be a duration >= 0", envEvalTimeout, v)
		}
		ev.Timeout = d
	}
	return ev, nil
}

// NormalizeKind returns the canonical spelling of an evaluator kind.
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// Load reads configuration from environment variables with sensible defaults.
// The input and output roots have no default; a missing root or an
// unparseable value is an error the caller should treat as fatal.
func Load() (Config, error) {
	cfg := Config{
		InputsDir:    firstEnv(envInputsDir, envSidecarInputs),
		OutputsDir:   firstEnv(envOutputsDir, envSidecarOutputs),
		PollInterval: defaultPollInterval,
		LogLevel:     slog.LevelInfo,
	}

	if cfg.InputsDir == "" {
		return Config{}, fmt.Errorf("%w: set %s", ErrMissingRoot, envInputsDir)
	}
	if cfg.OutputsDir == "" {
		return Config{}, fmt.Errorf("%w: set %s", ErrMissingRoot, envOutputsDir)
	}

	if v := os.Getenv(envPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must be a positive duration", envPollInterval, v)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv(envWatch); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envWatch, v, err)
		}
		cfg.Watch = b
	}
	ev, err := LoadEvaluator()
	if err != nil {
		return Config{}, err
	}
	cfg.Evaluator = ev.Kind
	cfg.EvaluatorConfig = ev.ConfigPath
	cfg.EvaluatorCmd = ev.Command
	cfg.EvalTimeout = ev.Timeout
	cfg.ListenAddr = os.Getenv(envListenAddr)
	cfg.DBPath = os.Getenv(envDBPath)
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
