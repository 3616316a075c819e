package engine

import (
	"strings"
	"testing"
)

func TestCompletedThreshold(t *testing.T) {
	if Completed(strings.Repeat("x", 100)) {
		t.Fatalf("exactly 100 chars is not complete")
	}
	if !Completed(strings.Repeat("x", 101)) {
		t.Fatalf("101 chars is complete")
	}
}

func TestPercentageRounding(t *testing.T) {
	if got := Percentage(1, 8); got != 13 {
		t.Fatalf("1/8: want 13 got %d", got)
	}
	if got := Percentage(8, 8); got != 100 {
		t.Fatalf("8/8: want 100 got %d", got)
	}
	if got := Percentage(0, 8); got != 0 {
		t.Fatalf("0/8: want 0 got %d", got)
	}
	if got := Percentage(3, 0); got != 0 {
		t.Fatalf("zero total: want 0 got %d", got)
	}
}

func TestCompletionTransitionFiresOnce(t *testing.T) {
	tr := NewCompletionTracker()
	long := strings.Repeat("x", 150)
	short := "brief"

	if !tr.Observe("funding_request", "", long) {
		t.Fatalf("first false->true transition should fire")
	}
	// Oscillate below and back above the threshold.
	if tr.Observe("funding_request", long, short) {
		t.Fatalf("dropping below threshold should not fire")
	}
	if tr.Observe("funding_request", short, long) {
		t.Fatalf("re-completing should not fire a second time")
	}
}

func TestCompletionTrackerPerSection(t *testing.T) {
	tr := NewCompletionTracker()
	long := strings.Repeat("x", 150)
	if !tr.Observe("executive_summary", "", long) {
		t.Fatalf("executive_summary should fire")
	}
	if !tr.Observe("market_analysis", "", long) {
		t.Fatalf("a different section should fire independently")
	}
}

func TestCompletionTrackerPrime(t *testing.T) {
	tr := NewCompletionTracker()
	long := strings.Repeat("x", 150)
	tr.Prime("executive_summary", long)
	if tr.Observe("executive_summary", "", long) {
		t.Fatalf("primed section should never fire")
	}
	tr.Prime("market_analysis", "short")
	if !tr.Observe("market_analysis", "", long) {
		t.Fatalf("priming with incomplete content should not consume the one-shot")
	}
}
