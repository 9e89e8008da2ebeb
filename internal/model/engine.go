package model

import "maps"

// Engine status constants.
const (
	StatusReady     = "ready"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Record is the status document an engine publishes about itself. It is
// always written whole.
type Record struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Payload ScoreMap `json:"payload,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// State is the owned engine state. Transitions return a new State and never
// touch the receiver, so callers decide when the change becomes visible.
type State struct {
	id      string
	status  string
	payload ScoreMap
	err     string
}

// NewState returns the initial ready state for the engine identified by id.
func NewState(id string) State {
	return State{id: id, status: StatusReady}
}

// ID returns the engine identity.
func (s State) ID() string { return s.id }

// Status returns the current status.
func (s State) Status() string { return s.status }

// Payload returns a copy of the last submitted scores, or nil.
func (s State) Payload() ScoreMap { return maps.Clone(s.payload) }

// Reset moves to ready and clears any payload or error.
func (s State) Reset() State {
	return State{id: s.id, status: StatusReady}
}

// Submit moves to submitted with scores as the payload. A submit from
// submitted overwrites the previous payload.
func (s State) Submit(scores ScoreMap) State {
	payload := maps.Clone(scores)
	if payload == nil {
		payload = ScoreMap{}
	}
	return State{id: s.id, status: StatusSubmitted, payload: payload}
}

// Fail moves to failed, drops any previous payload and keeps the error text.
func (s State) Fail(err error) State {
	msg := "evaluation failed"
	if err != nil {
		msg = err.Error()
	}
	return State{id: s.id, status: StatusFailed, err: msg}
}

// Record returns the publishable view of the state.
func (s State) Record() Record {
	return Record{
		ID:      s.id,
		Status:  s.status,
		Payload: maps.Clone(s.payload),
		Error:   s.err,
	}
}
