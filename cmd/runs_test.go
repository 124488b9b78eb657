package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/dakotadriver/internal/store"
)

func testInfos(now time.Time) []store.RunInfo {
	return []store.RunInfo{
		{ID: "run1", State: store.StateCompleted, CreatedAt: now.AddDate(0, 0, -10)}, // 10 days old
		{ID: "run2", State: store.StateFailed, CreatedAt: now.AddDate(0, 0, -5)},     // 5 days old
		{ID: "run3", State: store.StateCompleted, CreatedAt: now.AddDate(0, 0, -1)},  // 1 day old
		{ID: "run4", State: store.StateCancelled, CreatedAt: now.AddDate(0, 0, -30)}, // 30 days old
	}
}

func ids(infos []store.RunInfo) map[string]bool {
	m := make(map[string]bool)
	for _, info := range infos {
		m[info.ID] = true
	}
	return m
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()

	toDelete := selectRunsForDeletion(testInfos(now), 0, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if !got["run1"] || !got["run4"] {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()

	toDelete := selectRunsForDeletion(testInfos(now), 2, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if !got["run4"] || !got["run1"] {
		t.Error("Expected run4 and run1 to be selected for deletion (oldest)")
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()

	// Age picks run1 and run4, count picks run4 only; no duplicates
	toDelete := selectRunsForDeletion(testInfos(now), 3, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if !got["run1"] || !got["run4"] {
		t.Errorf("Unexpected selection: %v", got)
	}
}

func TestSelectRunsForDeletion_KeepsUnfinished(t *testing.T) {
	now := time.Now()
	infos := testInfos(now)
	infos[3].State = store.StateRunning

	toDelete := selectRunsForDeletion(infos, 0, 7, now)

	if len(toDelete) != 1 || toDelete[0].ID != "run1" {
		t.Errorf("Running runs must not be deleted, got %v", ids(toDelete))
	}
}

func TestSelectRunsForDeletion_NoCriteriaMatch(t *testing.T) {
	now := time.Now()

	if toDelete := selectRunsForDeletion(testInfos(now), 10, 90, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tempDir := t.TempDir()

	os.WriteFile(filepath.Join(tempDir, "file1.txt"), make([]byte, 100), 0644)
	os.MkdirAll(filepath.Join(tempDir, "sub"), 0755)
	os.WriteFile(filepath.Join(tempDir, "sub", "file2.txt"), make([]byte, 250), 0644)

	size, err := getDirSize(tempDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 350 {
		t.Errorf("Expected size 350, got %d", size)
	}

	if _, err := getDirSize(filepath.Join(tempDir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, got, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Short IDs should be unchanged, got %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("Unexpected truncation: %s", got)
	}
}

func TestConfirm(t *testing.T) {
	var out strings.Builder
	if !confirm(strings.NewReader("y\n"), &out, "? ") {
		t.Error("Expected y to confirm")
	}
	if confirm(strings.NewReader("\n"), &out, "? ") {
		t.Error("Expected empty answer to abort")
	}
	if out.String() != "? ? " {
		t.Errorf("Prompt not written: %q", out.String())
	}
}
