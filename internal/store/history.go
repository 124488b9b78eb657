package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwbudde/dakotadriver/internal/bridge"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	eval_id     INTEGER NOT NULL,
	cv_json     TEXT NOT NULL,
	asv_json    TEXT NOT NULL,
	fns_json    TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id, id);
`

// HistoryDB keeps the evaluation history of every run in one SQLite file.
type HistoryDB struct {
	db *sql.DB
}

// OpenHistory opens the database at path and runs migrations.
func OpenHistory(path string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &HistoryDB{db: db}, nil
}

// Close closes the underlying database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Recorder returns a bridge.Recorder that files evaluations under runID.
func (h *HistoryDB) Recorder(runID string) bridge.Recorder {
	return &historyRecorder{db: h, runID: runID}
}

// Insert stores one evaluation of runID.
func (h *HistoryDB) Insert(ctx context.Context, runID string, ev bridge.Evaluation) error {
	cv, err := json.Marshal(ev.CV)
	if err != nil {
		return fmt.Errorf("marshal cv: %w", err)
	}
	asv, err := json.Marshal(ev.ASV)
	if err != nil {
		return fmt.Errorf("marshal asv: %w", err)
	}
	fns, err := json.Marshal(bridge.Values(ev.Fns))
	if err != nil {
		return fmt.Errorf("marshal fns: %w", err)
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO evaluations (run_id, eval_id, cv_json, asv_json, fns_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, ev.EvalID, string(cv), string(asv), string(fns), ts.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// Evaluations returns the history of runID in insertion order.
func (h *HistoryDB) Evaluations(ctx context.Context, runID string) ([]TraceEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT eval_id, cv_json, asv_json, fns_json, created_at
		 FROM evaluations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var entries []TraceEntry
	for rows.Next() {
		var (
			e                 TraceEntry
			cv, asv, fns, tsS string
		)
		if err := rows.Scan(&e.EvalID, &cv, &asv, &fns, &tsS); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if err := json.Unmarshal([]byte(cv), &e.CV); err != nil {
			return nil, fmt.Errorf("unmarshal cv: %w", err)
		}
		if err := json.Unmarshal([]byte(asv), &e.ASV); err != nil {
			return nil, fmt.Errorf("unmarshal asv: %w", err)
		}
		if err := json.Unmarshal([]byte(fns), &e.Fns); err != nil {
			return nil, fmt.Errorf("unmarshal fns: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, tsS)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteRun drops the history of runID.
func (h *HistoryDB) DeleteRun(ctx context.Context, runID string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM evaluations WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete evaluations: %w", err)
	}
	return nil
}

type historyRecorder struct {
	db    *HistoryDB
	runID string
}

func (r *historyRecorder) Record(ctx context.Context, ev bridge.Evaluation) error {
	return r.db.Insert(ctx, r.runID, ev)
}
