package engine

import (
	"testing"
	"time"
)

func TestDateKeyAtBeforeAndAfterReset(t *testing.T) {
	// 重置时刻 02:00：01:30 归前一日，02:00 起归当日
	before := time.Date(2025, 1, 5, 1, 30, 0, 0, time.UTC)
	if got := DateKeyAt(before, 2, 0); got != "2025-01-04" {
		t.Fatalf("expected 2025-01-04, got %s", got)
	}

	at := time.Date(2025, 1, 5, 2, 0, 0, 0, time.UTC)
	if got := DateKeyAt(at, 2, 0); got != "2025-01-05" {
		t.Fatalf("expected 2025-01-05, got %s", got)
	}

	after := time.Date(2025, 1, 5, 23, 59, 0, 0, time.UTC)
	if got := DateKeyAt(after, 2, 0); got != "2025-01-05" {
		t.Fatalf("expected 2025-01-05, got %s", got)
	}
}

func TestDateKeyAtMonthAndYearRollover(t *testing.T) {
	monthEdge := time.Date(2025, 2, 1, 1, 0, 0, 0, time.UTC)
	if got := DateKeyAt(monthEdge, 2, 0); got != "2025-01-31" {
		t.Fatalf("expected 2025-01-31, got %s", got)
	}

	yearEdge := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	if got := DateKeyAt(yearEdge, 2, 0); got != "2025-12-31" {
		t.Fatalf("expected 2025-12-31, got %s", got)
	}
}

func TestDateKeyAtCustomReset(t *testing.T) {
	instant := time.Date(2025, 1, 5, 2, 30, 0, 0, time.UTC)
	if got := DateKeyAt(instant, 3, 0); got != "2025-01-04" {
		t.Fatalf("expected 2025-01-04 with 03:00 reset, got %s", got)
	}
	if got := DateKeyAt(instant, 2, 0); got != "2025-01-05" {
		t.Fatalf("expected 2025-01-05 with 02:00 reset, got %s", got)
	}
}

func TestResetBoundaries(t *testing.T) {
	instant := time.Date(2025, 1, 5, 1, 30, 0, 0, time.UTC)

	prev := PrevReset(instant, 2, 0)
	want := time.Date(2025, 1, 4, 2, 0, 0, 0, time.UTC)
	if !prev.Equal(want) {
		t.Fatalf("PrevReset = %v, want %v", prev, want)
	}

	next := NextReset(instant, 2, 0)
	want = time.Date(2025, 1, 5, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("NextReset = %v, want %v", next, want)
	}

	// 边界本身属于当日，上一边界即自身
	onBoundary := time.Date(2025, 1, 5, 2, 0, 0, 0, time.UTC)
	if prev := PrevReset(onBoundary, 2, 0); !prev.Equal(onBoundary) {
		t.Fatalf("PrevReset on boundary = %v, want %v", prev, onBoundary)
	}
}

func TestDateKeyTime(t *testing.T) {
	day, ok := DateKey("2025-01-05").Time(time.UTC)
	if !ok {
		t.Fatal("expected valid date key to parse")
	}
	if !day.Equal(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day: %v", day)
	}

	if _, ok := DateKey("garbage").Time(time.UTC); ok {
		t.Fatal("expected malformed date key to fail")
	}
}
