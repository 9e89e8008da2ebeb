package model

// Command names understood by the engine.
const (
	CommandRun      Command = "run"
	CommandGetReady Command = "get ready"
)

// Command is the verb of a task addressed to an engine.
type Command string

// ParamMap holds named evaluation parameters.
type ParamMap map[string]float64

// ScoreMap holds named evaluation scores.
type ScoreMap map[string]float64

// Task is the unit of work the controller assigns to one engine.
type Task struct {
	Command Command  `json:"command"`
	Payload ParamMap `json:"payload,omitempty"`
}

// TaskEntry is the per-engine value in the coordination document.
type TaskEntry struct {
	Task Task `json:"task"`
}

// CoordinationDocument is the controller-owned document listing task
// assignments keyed by engine identity.
type CoordinationDocument struct {
	Engines map[string]TaskEntry `json:"engines"`

	// Invalid holds the decode error of each entry that did not fit the task
	// schema. Such entries are absent from Engines.
	Invalid map[string]error `json:"-"`
}
