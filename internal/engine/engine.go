package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/evalengine/internal/coord"
	"github.com/seantiz/evalengine/internal/evaluator"
	"github.com/seantiz/evalengine/internal/model"
)

// DefaultInterval is the wait between poll cycles when none is configured.
const DefaultInterval = 10 * time.Second

// commandStart is the journal command recorded for the startup publish.
const commandStart = "start"

// Source yields the current coordination document. Implementations report a
// missing document with coord.ErrNotFound and unparseable content with
// coord.ErrMalformed.
type Source interface {
	ReadTasks(ctx context.Context) (*model.CoordinationDocument, error)
}

// Notifier is implemented by sources that can signal a change before the
// next interval elapses.
type Notifier interface {
	Changes() <-chan struct{}
}

// Publisher writes the engine record where the controller can see it.
type Publisher interface {
	Publish(ctx context.Context, rec model.Record) error
}

// Journal persists publish attempts. It is optional.
type Journal interface {
	InsertRecord(ctx context.Context, e *model.JournalEntry) error
}

// Config wires an Engine to its collaborators.
type Config struct {
	ID        string
	Source    Source
	Publisher Publisher
	Evaluator evaluator.Evaluator
	Journal   Journal

	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// EvalTimeout bounds each evaluation; zero means no bound.
	EvalTimeout time.Duration
}

// Engine is the polling controller for a single engine identity. Poll cycles
// run strictly one after another on the goroutine that called Run.
type Engine struct {
	id          string
	source      Source
	publisher   Publisher
	evaluator   evaluator.Evaluator
	journal     Journal
	interval    time.Duration
	evalTimeout time.Duration
	logger      *slog.Logger
	broker      *RecordBroker

	mu    sync.RWMutex
	state model.State
}

// NewEngine creates an engine in the ready state. A missing ID is replaced by
// a freshly generated one.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	id := cfg.ID
	if id == "" {
		id = model.NewID()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Engine{
		id:          id,
		source:      cfg.Source,
		publisher:   cfg.Publisher,
		evaluator:   cfg.Evaluator,
		journal:     cfg.Journal,
		interval:    interval,
		evalTimeout: cfg.EvalTimeout,
		logger:      logger.With("engine_id", id),
		broker:      NewRecordBroker(),
		state:       model.NewState(id),
	}
}

// ID returns the engine identity.
func (e *Engine) ID() string {
	return e.id
}

// State returns a snapshot of the current engine state.
func (e *Engine) State() model.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Broker returns the broker that receives every successfully published record.
func (e *Engine) Broker() *RecordBroker {
	return e.broker
}

func (e *Engine) setState(s model.State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	setStatusGauge(s.Status())
}

// Run publishes the initial ready record and then polls until ctx is
// cancelled. Errors inside a cycle are logged and never end the loop.
func (e *Engine) Run(ctx context.Context) error {
	defer e.broker.Close()

	e.logger.Info("engine starting", "interval", e.interval.String())
	setStatusGauge(e.State().Status())
	_ = e.publish(ctx, commandStart, e.State().Record(), 0)

	var changes <-chan struct{}
	if n, ok := e.source.(Notifier); ok {
		changes = n.Changes()
	}

	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return nil
		case <-timer.C:
		case <-changes:
			e.logger.Debug("coordination document changed")
		}

		e.PollOnce(ctx)
		timer.Reset(e.interval)
	}
}

// PollOnce runs a single read → lookup → dispatch → publish cycle.
func (e *Engine) PollOnce(ctx context.Context) Outcome {
	outcome := e.poll(ctx)
	pollCyclesTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (e *Engine) poll(ctx context.Context) Outcome {
	if ctx.Err() != nil {
		return OutcomeInterrupted
	}

	doc, err := e.source.ReadTasks(ctx)
	switch {
	case errors.Is(err, coord.ErrMalformed):
		e.logger.Warn("coordination document malformed", "error", err)
		return OutcomeMalformed
	case errors.Is(err, coord.ErrNotFound):
		e.logger.Info("coordination document not found", "error", err)
		return OutcomeUnavailable
	case err != nil:
		e.logger.Warn("read coordination document", "error", err)
		return OutcomeUnavailable
	}

	entry, ok := coord.LookupTask(doc, e.id)
	if !ok {
		if err := coord.EntryError(doc, e.id); err != nil {
			e.logger.Warn("task entry malformed", "error", err)
			return OutcomeMalformed
		}
		e.logger.Debug("no task")
		return OutcomeNoTask
	}

	task := entry.Task
	h, ok := handlers[task.Command]
	if !ok {
		e.logger.Warn("unrecognized command", "command", string(task.Command))
		return OutcomeUnrecognized
	}

	start := time.Now()
	next, outcome := h(ctx, e, e.State(), task)
	if ctx.Err() != nil {
		// Shutdown interrupted the cycle; its result says nothing about the task.
		e.logger.Info("poll cycle interrupted", "command", string(task.Command))
		return OutcomeInterrupted
	}
	e.setState(next)

	if err := e.publish(ctx, string(task.Command), next.Record(), time.Since(start)); err != nil {
		return OutcomePublishFailed
	}
	return outcome
}

// evaluate calls the evaluator with the configured deadline. A panicking
// evaluator is reported as an error.
func (e *Engine) evaluate(ctx context.Context, params model.ParamMap) (scores model.ScoreMap, err error) {
	if e.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.evalTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("evaluator panic: %v", r)
		}
		evaluationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			evaluationsTotal.WithLabelValues(resultFailed).Inc()
			return
		}
		evaluationsTotal.WithLabelValues(resultSucceeded).Inc()
	}()

	if e.evaluator == nil {
		return nil, errors.New("no evaluator configured")
	}
	scores, err = e.evaluator.Evaluate(ctx, params)
	if err != nil {
		return nil, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("evaluation timed out after %s", e.evalTimeout)
	}
	if err := evaluator.CheckScores(scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// publish writes rec, fans it out on success and journals the attempt.
func (e *Engine) publish(ctx context.Context, command string, rec model.Record, dur time.Duration) error {
	err := e.publisher.Publish(ctx, rec)
	if err != nil {
		publishFailuresTotal.Inc()
		e.logger.Error("publish record failed", "command", command, "status", rec.Status, "error", err)
	} else {
		e.logger.Info("record published", "command", command, "status", rec.Status, "duration_ms", dur.Milliseconds())
		e.broker.Publish(rec)
	}

	if e.journal != nil {
		entry := &model.JournalEntry{
			EngineID:   rec.ID,
			Command:    command,
			Status:     rec.Status,
			Payload:    rec.Payload,
			Error:      rec.Error,
			DurationMS: int(dur.Milliseconds()),
			Published:  err == nil,
			CreatedAt:  time.Now().UTC(),
		}
		if jerr := e.journal.InsertRecord(context.WithoutCancel(ctx), entry); jerr != nil {
			e.logger.Error("journal record failed", "command", command, "error", jerr)
		}
	}
	return err
}
