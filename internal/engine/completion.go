package engine

import (
	"math"

	"github.com/planforge/planforge-backend/internal/domain/plan"
)

// Completed reports whether content passes the completion threshold.
func Completed(content string) bool {
	return len(content) > plan.CompletionThreshold
}

// Percentage is the aggregate completion for completedCount of total catalog
// sections, rounded to the nearest whole percent.
func Percentage(completedCount, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completedCount) / float64(total)))
}

// CompletionTracker remembers which sections have already fired their
// one-shot transition-to-complete notification. Content may oscillate above
// and below the threshold; the celebration fires once per section per
// document lifetime.
type CompletionTracker struct {
	notified map[string]bool
}

func NewCompletionTracker() *CompletionTracker {
	return &CompletionTracker{notified: make(map[string]bool)}
}

// Observe records a content change for a section and reports whether this
// change is the section's first transition to complete.
func (t *CompletionTracker) Observe(sectionID, oldContent, newContent string) bool {
	if t.notified[sectionID] {
		return false
	}
	if !Completed(oldContent) && Completed(newContent) {
		t.notified[sectionID] = true
		return true
	}
	// A section restored from storage can already be complete; count it as
	// notified so reloading a document never re-fires the celebration.
	if Completed(newContent) {
		t.notified[sectionID] = true
	}
	return false
}

// Prime marks a section as already notified without emitting anything. Used
// when hydrating a session from persisted state.
func (t *CompletionTracker) Prime(sectionID string, content string) {
	if Completed(content) {
		t.notified[sectionID] = true
	}
}
