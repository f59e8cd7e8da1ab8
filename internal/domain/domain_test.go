package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTagSet(t *testing.T) {
	t.Parallel()

	got := TagSet([]string{" Rust", "memory", "rust", "", "  ", "Async"})
	want := []string{"async", "memory", "rust"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("TagSet mismatch (-want +got):\n%s", diff)
	}

	if got := TagSet(nil); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	wrapped := fmt.Errorf("run: %w", NewError(KindPersistence, "insert question", base))

	if got := KindOf(wrapped); got != KindPersistence {
		t.Fatalf("KindOf = %s, want persistence", got)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected wrapped error to unwrap to base")
	}
	if got := KindOf(base); got != KindUnknown {
		t.Fatalf("KindOf(plain) = %s, want unknown", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("KindOf(nil) = %s, want unknown", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewError(KindFetch, "fetch https://example.com", errors.New("status 503"))
	if got, want := err.Error(), "fetch https://example.com: fetch error: status 503"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got, want := NewError(KindResolution, "tag go", nil).Error(), "tag go: resolution error"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestRunReportTotals(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := RunReport{
		StartedAt:          start,
		FinishedAt:         start.Add(1500 * time.Millisecond),
		SkippedBlocks:      1,
		FailedQuestions:    2,
		TagsFailed:         1,
		EdgesFailed:        3,
		EdgesSkippedBudget: 4,
	}
	if r.Duration() != 1500*time.Millisecond {
		t.Fatalf("Duration = %s", r.Duration())
	}
	if r.Skipped() != 11 {
		t.Fatalf("Skipped = %d, want 11", r.Skipped())
	}
	if (RunReport{}).Duration() != 0 {
		t.Fatalf("zero report should have zero duration")
	}
}
