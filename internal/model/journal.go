package model

import "time"

// JournalEntry is one persisted publish attempt.
type JournalEntry struct {
	ID         int64     `json:"id"`
	EngineID   string    `json:"engine_id"`
	Command    string    `json:"command"`
	Status     string    `json:"status"`
	Payload    ScoreMap  `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int       `json:"duration_ms"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"`
}
