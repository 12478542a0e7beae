package scheduler

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return parsed
}

func TestBoundaries_FutureDateFullDay(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T10:07:00Z")

	boundaries, err := grid.Boundaries("2026-03-02", now, "00:00", "24:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}

	if len(boundaries) != 96 {
		t.Fatalf("expected 96 boundaries for a full day, got %d", len(boundaries))
	}
	if boundaries[0] != 0 {
		t.Errorf("expected first boundary at midnight, got %d", boundaries[0])
	}
	if last := boundaries[len(boundaries)-1]; last != 23*60+45 {
		t.Errorf("expected last boundary at 23:45, got %d", last)
	}
}

func TestBoundaries_TodayAnchorsStrictlyAfterNow(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T10:07:00Z")

	boundaries, err := grid.Boundaries("2026-03-01", now, "00:00", "24:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	if len(boundaries) == 0 {
		t.Fatal("expected boundaries for the rest of the day")
	}
	if boundaries[0] != 10*60+15 {
		t.Errorf("expected first boundary at 10:15, got %d", boundaries[0])
	}
}

func TestBoundaries_ExactGridMomentStillMovesForward(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T10:00:00Z")

	boundaries, err := grid.Boundaries("2026-03-01", now, "00:00", "24:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	// 10:00 on the dot is already in the past for scheduling purposes.
	if boundaries[0] != 10*60+15 {
		t.Errorf("expected first boundary at 10:15, got %d", boundaries[0])
	}
}

func TestBoundaries_MinuteOverflowRollsIntoNextHour(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T10:51:00Z")

	boundaries, err := grid.Boundaries("2026-03-01", now, "00:00", "24:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	if boundaries[0] != 11*60 {
		t.Errorf("expected first boundary at 11:00, got %d", boundaries[0])
	}
}

func TestBoundaries_PastDateYieldsNone(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T10:00:00Z")

	boundaries, err := grid.Boundaries("2026-02-28", now, "00:00", "24:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	if len(boundaries) != 0 {
		t.Errorf("expected no boundaries for a past date, got %d", len(boundaries))
	}
}

func TestBoundaries_NarrowWindow(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T08:00:00Z")

	boundaries, err := grid.Boundaries("2026-03-02", now, "09:00", "09:45")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	want := []int{540, 555, 570}
	if len(boundaries) != len(want) {
		t.Fatalf("expected %d boundaries, got %d", len(want), len(boundaries))
	}
	for i, b := range boundaries {
		if b != want[i] {
			t.Errorf("boundary %d: expected %d, got %d", i, want[i], b)
		}
	}
}

func TestBoundaries_UnalignedDayStartAlignsUp(t *testing.T) {
	grid := Grid{SlotMin: 15}
	now := mustTime(t, "2026-03-01T08:00:00Z")

	boundaries, err := grid.Boundaries("2026-03-02", now, "09:10", "10:00")
	if err != nil {
		t.Fatalf("Boundaries failed: %v", err)
	}
	if len(boundaries) == 0 || boundaries[0] != 9*60+15 {
		t.Fatalf("expected first boundary aligned up to 09:15, got %v", boundaries)
	}
}

func TestBoundaries_InvalidSlotDuration(t *testing.T) {
	grid := Grid{SlotMin: 0}
	now := mustTime(t, "2026-03-01T08:00:00Z")

	if _, err := grid.Boundaries("2026-03-02", now, "00:00", "24:00"); err == nil {
		t.Error("expected error for zero slot duration")
	}
}
