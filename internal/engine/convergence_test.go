package engine

import (
	"math"
	"testing"
)

func TestConvergenceTracker_BasicConvergence(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.01}, nil)

	if tracker.BestCost() != math.Inf(1) {
		t.Errorf("Expected initial best cost to be Inf, got %v", tracker.BestCost())
	}

	if tracker.Update(1.0) {
		t.Error("Should not converge on first update")
	}

	if tracker.Update(0.8) { // 20% improvement
		t.Error("Should not converge after improvement")
	}
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count 0 after improvement, got %v", tracker.StaleCount())
	}

	// Below 1% of the last significant cost 0.8
	if tracker.Update(0.795) {
		t.Error("Should not converge yet (1/3)")
	}
	if tracker.Update(0.795) {
		t.Error("Should not converge yet (2/3)")
	}
	if !tracker.Update(0.794) {
		t.Error("Should converge after patience exceeded (3/3)")
	}
	if tracker.BestCost() != 0.794 {
		t.Errorf("Expected best cost 0.794, got %v", tracker.BestCost())
	}
	if len(tracker.History()) != 5 {
		t.Errorf("Expected 5 history entries, got %d", len(tracker.History()))
	}
}

func TestConvergenceTracker_ImprovementResetsStaleCount(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.05}, nil)

	tracker.Update(1.0)
	tracker.Update(0.99)
	if tracker.StaleCount() != 1 {
		t.Errorf("Expected stale count 1, got %v", tracker.StaleCount())
	}

	tracker.Update(0.94) // 6% below the last significant cost
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count reset to 0, got %v", tracker.StaleCount())
	}
}

func TestConvergenceTracker_NegativeAndZeroCosts(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1}, nil)

	tracker.Update(-1.0)
	if tracker.Update(-1.5) { // 50% better relative to |-1|
		t.Error("Improvement on negative costs should count")
	}

	zero := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1}, nil)
	zero.Update(0)
	if !zero.Update(0) {
		t.Error("No change from zero should be stale")
	}
}

func TestConvergenceTracker_InfiniteStart(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.1}, nil)

	tracker.Update(math.Inf(1))
	if tracker.Update(5) {
		t.Error("First finite cost should count as an improvement")
	}
	if !tracker.Update(5) {
		t.Error("Repeated cost should converge with patience 1")
	}
}

func TestConvergenceTracker_Disabled(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: false, Patience: 1}, nil)

	for i := 0; i < 10; i++ {
		if tracker.Update(1.0) {
			t.Fatal("Disabled tracker should never converge")
		}
	}
}
