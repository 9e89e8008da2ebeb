package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seantiz/evalengine/internal/model"

	_ "modernc.org/sqlite"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    engine_id   TEXT NOT NULL,
    command     TEXT NOT NULL,
    status      TEXT NOT NULL,
    payload     TEXT,
    error       TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    published   INTEGER NOT NULL,
    created_at  DATETIME NOT NULL
)`

// ErrNotFound is returned when a journal record is not found.
var ErrNotFound = errors.New("record not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRecord appends a journal entry and sets e.ID.
func (s *SQLiteStore) InsertRecord(ctx context.Context, e *model.JournalEntry) error {
	var payload sql.NullString
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (
			engine_id, command, status, payload, error, duration_ms, published, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EngineID, e.Command, e.Status, payload, e.Error, e.DurationMS, e.Published, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read record id: %w", err)
	}
	e.ID = id
	return nil
}

const selectRecordColumns = `SELECT id, engine_id, command, status, payload, error,
	duration_ms, published, created_at FROM records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.JournalEntry, error) {
	e := &model.JournalEntry{}
	var payload, errMsg sql.NullString
	if err := row.Scan(
		&e.ID, &e.EngineID, &e.Command, &e.Status, &payload, &errMsg,
		&e.DurationMS, &e.Published, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Error = errMsg.String
	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return e, nil
}

// GetRecord retrieves a journal entry by ID.
func (s *SQLiteStore) GetRecord(ctx context.Context, id int64) (*model.JournalEntry, error) {
	e, err := scanRecord(s.db.QueryRowContext(ctx, selectRecordColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return e, nil
}

// ListRecords returns a page of journal entries, newest first, along with the
// total number of entries.
func (s *SQLiteStore) ListRecords(ctx context.Context, limit, offset int) ([]*model.JournalEntry, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := tx.QueryContext(ctx, selectRecordColumns+" ORDER BY id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var entries []*model.JournalEntry
	for rows.Next() {
		e, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}

	return entries, total, nil
}

// GetStats returns aggregate counts over the whole journal.
func (s *SQLiteStore) GetStats(ctx context.Context) (*RecordStats, error) {
	stats := &RecordStats{
		CountByStatus:  make(map[string]int),
		CountByCommand: make(map[string]int),
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN published = 0 THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN command = 'run' THEN duration_ms END)
		FROM records`,
	).Scan(&stats.Total, &stats.Unpublished, &avg); err != nil {
		return nil, fmt.Errorf("aggregate records: %w", err)
	}
	stats.AvgDurationMS = avg.Float64

	if err := s.countBy(ctx, "status", stats.CountByStatus); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "command", stats.CountByCommand); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy fills dst with row counts grouped by column, which must be a
// trusted column name.
func (s *SQLiteStore) countBy(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM records GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		dst[key] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}
