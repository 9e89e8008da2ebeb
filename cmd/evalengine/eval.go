package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/evalengine/internal/config"
	"github.com/seantiz/evalengine/internal/evaluator"
	"github.com/seantiz/evalengine/internal/model"
)

type evalOptions struct {
	kind       string
	configPath string
	command    string
	paramsPath string
	timeout    time.Duration
}

func newEvalCmd() *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate one parameter set and print the scores",
		Long: `Reads a JSON object of named parameters, runs the configured evaluator
once and writes the scores as JSON to stdout. No shared directories are
touched. Evaluator flags override the EVALENGINE_EVALUATOR* environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "evaluator", "", "evaluator kind (targets, exec)")
	f.StringVar(&opts.configPath, "config", "", "targets YAML file")
	f.StringVar(&opts.command, "cmd", "", "evaluator command line for the exec kind")
	f.StringVar(&opts.paramsPath, "params", "", "parameters JSON file, - for stdin")
	f.DurationVar(&opts.timeout, "timeout", 0, "evaluation timeout, 0 for none")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}

// evalSettings layers explicitly set flags over the environment settings.
func evalSettings(cmd *cobra.Command, opts evalOptions) (config.EvaluatorSettings, error) {
	settings, err := config.LoadEvaluator()
	if err != nil {
		return config.EvaluatorSettings{}, err
	}

	f := cmd.Flags()
	if f.Changed("evaluator") {
		settings.Kind = config.NormalizeKind(opts.kind)
	}
	if f.Changed("config") {
		settings.ConfigPath = opts.configPath
	}
	if f.Changed("cmd") {
		settings.Command = opts.command
	}
	if f.Changed("timeout") {
		settings.Timeout = opts.timeout
	}
	return settings, nil
}

func runEval(cmd *cobra.Command, opts evalOptions) error {
	settings, err := evalSettings(cmd, opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ev, err := evaluator.NewDefaultRegistry().Resolve(settings.Kind, evaluator.Options{
		ConfigPath: settings.ConfigPath,
		Command:    settings.Command,
	})
	if err != nil {
		return err
	}

	var data []byte
	if opts.paramsPath == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(opts.paramsPath)
	}
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}

	var params model.ParamMap
	if err := json.Unmarshal(data, &params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	scores, err := ev.Evaluate(ctx, params)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(scores)
}
