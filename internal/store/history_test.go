package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/dakotadriver/internal/bridge"
)

func tempHistory(t *testing.T) *HistoryDB {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecordAndQuery(t *testing.T) {
	h := tempHistory(t)
	ctx := context.Background()

	rec := h.Recorder("run-a")
	for i := 1; i <= 3; i++ {
		ev := bridge.Evaluation{
			EvalID:    i,
			CV:        []float64{float64(i), -1},
			ASV:       []int{1, 1},
			Fns:       []float64{float64(i) * 2, -0.5},
			Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		}
		if err := rec.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := h.Recorder("run-b").Record(ctx, bridge.Evaluation{EvalID: 1, CV: []float64{0}, ASV: []int{1}, Fns: []float64{9}}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := h.Evaluations(ctx, "run-a")
	if err != nil {
		t.Fatalf("Evaluations: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].EvalID != 2 || entries[1].Fns[0] != 4 || entries[1].CV[1] != -1 {
		t.Fatalf("unexpected entry: %+v", entries[1])
	}
	if !entries[2].Timestamp.Equal(time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC)) {
		t.Fatalf("timestamp not preserved: %v", entries[2].Timestamp)
	}

	other, _ := h.Evaluations(ctx, "run-b")
	if len(other) != 1 {
		t.Fatalf("expected runs to be kept apart, got %d entries for run-b", len(other))
	}
}

func TestHistory_NonFiniteValues(t *testing.T) {
	h := tempHistory(t)
	ctx := context.Background()

	ev := bridge.Evaluation{EvalID: 1, CV: []float64{0}, ASV: []int{1}, Fns: []float64{math.Inf(-1)}}
	if err := h.Recorder("run-a").Record(ctx, ev); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := h.Evaluations(ctx, "run-a")
	if err != nil {
		t.Fatalf("Evaluations: %v", err)
	}
	if len(entries) != 1 || !math.IsInf(entries[0].Fns[0], -1) {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistory_DeleteRun(t *testing.T) {
	h := tempHistory(t)
	ctx := context.Background()

	h.Insert(ctx, "gone", bridge.Evaluation{EvalID: 1, CV: []float64{1}, ASV: []int{1}, Fns: []float64{1}})
	if err := h.DeleteRun(ctx, "gone"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	entries, err := h.Evaluations(ctx, "gone")
	if err != nil {
		t.Fatalf("Evaluations: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestHistory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	h.Insert(ctx, "persist", bridge.Evaluation{EvalID: 7, CV: []float64{1}, ASV: []int{1}, Fns: []float64{1}})
	h.Close()

	h, err = OpenHistory(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h.Close()

	entries, _ := h.Evaluations(ctx, "persist")
	if len(entries) != 1 || entries[0].EvalID != 7 {
		t.Fatalf("expected persisted entry, got %+v", entries)
	}
}
