package eval

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultHistoryCapacity bounds retained records. The bound caps memory and
// disk use of long-running processes; it is not a completeness guarantee for
// historical analytics.
const DefaultHistoryCapacity = 1000

// #region history-interface
// HistoryStore retains evaluation records, oldest evicted first.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	Append(rec Record) error
	Since(t time.Time) ([]Record, error)
	Total() (int, error)
}

// #endregion history-interface

// #region memory-history
// MemoryHistory is an in-process ring of records.
type MemoryHistory struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewMemoryHistory creates a bounded in-memory history.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &MemoryHistory{capacity: capacity}
}

// Append adds a record, evicting the oldest once the bound is reached.
func (h *MemoryHistory) Append(rec Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
	return nil
}

// Since returns records with a timestamp at or after t, in insertion order.
func (h *MemoryHistory) Since(t time.Time) ([]Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Record
	for _, rec := range h.records {
		if !rec.Timestamp.Before(t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Total returns the number of retained records.
func (h *MemoryHistory) Total() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records), nil
}

// #endregion memory-history

// #region sqlite-schema
const historySchema = `
CREATE TABLE IF NOT EXISTS evaluations (
	evaluation_id    TEXT PRIMARY KEY,
	created_at       TEXT NOT NULL,
	scores_json      TEXT NOT NULL,
	overall_score    REAL NOT NULL,
	processing_ms    INTEGER NOT NULL,
	has_ground_truth INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dead_letter (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	question   TEXT NOT NULL,
	reason     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// #endregion sqlite-schema

// #region sqlite-history
// SQLiteHistory is the durable history store for production processes.
type SQLiteHistory struct {
	db       *sql.DB
	capacity int
}

// NewSQLiteHistory opens the database, runs migrations and applies the
// retention bound.
func NewSQLiteHistory(dbPath string, capacity int) (*SQLiteHistory, error) {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteHistory{db: db, capacity: capacity}, nil
}

// Close closes the underlying database connection.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

// DB exposes the connection for the dead-letter log.
func (h *SQLiteHistory) DB() *sql.DB {
	return h.db
}

// Append inserts a record and trims beyond the retention bound in one
// transaction, so the bound holds under concurrent appenders.
func (h *SQLiteHistory) Append(rec Record) error {
	scoresJSON, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO evaluations (evaluation_id, created_at, scores_json, overall_score, processing_ms, has_ground_truth)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		string(scoresJSON),
		rec.OverallScore,
		rec.ProcessingTime.Milliseconds(),
		boolToInt(rec.HasGroundTruth),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	_, err = tx.Exec(
		`DELETE FROM evaluations WHERE rowid NOT IN
		 (SELECT rowid FROM evaluations ORDER BY rowid DESC LIMIT ?)`,
		h.capacity,
	)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Since returns records created at or after t, in insertion order.
func (h *SQLiteHistory) Since(t time.Time) ([]Record, error) {
	rows, err := h.db.Query(
		`SELECT evaluation_id, created_at, scores_json, overall_score, processing_ms, has_ground_truth
		 FROM evaluations WHERE created_at >= ? ORDER BY rowid ASC`,
		t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			createdAt  string
			scoresJSON string
			procMs     int64
			hasGT      int
		)
		if err := rows.Scan(&rec.ID, &createdAt, &scoresJSON, &rec.OverallScore, &procMs, &hasGT); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		rec.ProcessingTime = time.Duration(procMs) * time.Millisecond
		rec.HasGroundTruth = hasGT != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Total returns the number of retained records.
func (h *SQLiteHistory) Total() (int, error) {
	var n int
	if err := h.db.QueryRow(`SELECT COUNT(*) FROM evaluations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion sqlite-history
