package store

import (
	"context"

	"github.com/seantiz/evalengine/internal/model"
)

// RecordStats holds aggregate publish statistics.
type RecordStats struct {
	Total          int            `json:"total"`
	CountByStatus  map[string]int `json:"count_by_status"`
	CountByCommand map[string]int `json:"count_by_command"`
	Unpublished    int            `json:"unpublished"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for the publish journal.
type Store interface {
	InsertRecord(ctx context.Context, e *model.JournalEntry) error
	GetRecord(ctx context.Context, id int64) (*model.JournalEntry, error)
	ListRecords(ctx context.Context, limit, offset int) ([]*model.JournalEntry, int, error)
	GetStats(ctx context.Context) (*RecordStats, error)
	Close() error
}
