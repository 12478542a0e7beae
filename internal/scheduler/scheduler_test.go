package scheduler

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
	"github.com/pulseplan/pulseplan/internal/validation"
)

func newTestStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	settings.Timezone = "UTC"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}
	return store
}

func newTestService(t *testing.T, store *storage.MemoryStore, nowStr string) *Service {
	t.Helper()
	now := mustTime(t, nowStr)
	svc := New(store)
	svc.clock = func() time.Time { return now }
	svc.rng = rand.New(rand.NewSource(7))
	return svc
}

func setWindow(t *testing.T, store *storage.MemoryStore, start, end string) {
	t.Helper()
	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	settings.DayStart = start
	settings.DayEnd = end
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}
}

func TestCreateDailySchedule_FillsWindowWithValidSlots(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "10:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	schedule, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("CreateDailySchedule failed: %v", err)
	}

	if len(schedule.Slots) != 4 {
		t.Fatalf("expected 4 slots in a one-hour window, got %d", len(schedule.Slots))
	}

	validator := validation.New()
	result := validator.ValidateSchedule(schedule.Slots, 15)
	if result.HasConflicts() {
		t.Errorf("generated schedule has conflicts:\n%s", result.FormatReport())
	}

	for _, slot := range schedule.Slots {
		if slot.Status != models.SlotStatusScheduled {
			t.Errorf("slot %s created with status %s", slot.ID, slot.Status)
		}
		if slot.ID == "" {
			t.Error("slot created without an ID")
		}
		start, _ := utils.ParseTimeToMinutes(slot.Start)
		end, _ := utils.ParseTimeToMinutes(slot.End)
		if end-start != 15 {
			t.Errorf("slot %s spans %d minutes", slot.ID, end-start)
		}
	}
}

func TestCreateDailySchedule_NarrowWindowYieldsThreeSlots(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "09:45")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	schedule, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("CreateDailySchedule failed: %v", err)
	}
	if len(schedule.Slots) != 3 {
		t.Fatalf("expected 3 slots for a 09:00-09:45 window, got %d", len(schedule.Slots))
	}
	starts := []string{"09:00", "09:15", "09:30"}
	for i, slot := range schedule.Slots {
		if slot.Start != starts[i] {
			t.Errorf("slot %d: expected start %s, got %s", i, starts[i], slot.Start)
		}
	}
}

func TestCreateDailySchedule_Idempotent(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "10:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	first, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if len(first.Slots) != len(second.Slots) {
		t.Fatalf("slot count changed between idempotent calls: %d vs %d", len(first.Slots), len(second.Slots))
	}
	for i := range first.Slots {
		if first.Slots[i].ID != second.Slots[i].ID {
			t.Errorf("slot %d changed identity on repeated create", i)
		}
	}
}

func TestGetOrCreateDailySchedule_ForceRecreatesFromScratch(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "10:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	first, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	recreated, err := svc.GetOrCreateDailySchedule("2026-03-02", true, nil)
	if err != nil {
		t.Fatalf("force recreate failed: %v", err)
	}
	if len(recreated.Slots) != len(first.Slots) {
		t.Fatalf("expected same slot count after recreate, got %d vs %d", len(recreated.Slots), len(first.Slots))
	}

	oldIDs := make(map[string]bool)
	for _, slot := range first.Slots {
		oldIDs[slot.ID] = true
	}
	for _, slot := range recreated.Slots {
		if oldIDs[slot.ID] {
			t.Errorf("slot %s survived a forced recreate", slot.ID)
		}
	}
}

func TestCreateDailySchedule_DisabledKindsFallBack(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "10:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	schedule, err := svc.CreateDailySchedule("2026-03-02", models.AllKinds())
	if err != nil {
		t.Fatalf("CreateDailySchedule failed: %v", err)
	}
	for _, slot := range schedule.Slots {
		if slot.Kind != models.FallbackKind {
			t.Errorf("slot %s: expected fallback kind with everything disabled, got %s", slot.ID, slot.Kind)
		}
	}
}

func TestCreateDailySchedule_RejectsBadDate(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	if _, err := svc.CreateDailySchedule("03/02/2026", nil); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestCreateDailySchedule_TodayStartsAfterNow(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "00:00", "24:00")
	svc := newTestService(t, store, "2026-03-02T22:50:00Z")

	schedule, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("CreateDailySchedule failed: %v", err)
	}
	if len(schedule.Slots) == 0 {
		t.Fatal("expected slots for the remainder of the day")
	}
	for _, slot := range schedule.Slots {
		start, _ := utils.ParseTimeToMinutes(slot.Start)
		if start <= 22*60+50 {
			t.Errorf("slot at %s starts at or before now", slot.Start)
		}
	}
}

func TestRegenerateForPlatform_PreservesOtherPlatform(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "09:00", "09:30")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	date := "2026-03-02"
	twitterSlot := models.ScheduleSlot{
		ID: "keep-twitter", Date: date, Start: "09:00", End: "09:15",
		Kind: models.KindTweet, Platform: models.PlatformTwitter,
		Status: models.SlotStatusScheduled,
	}
	linkedinSlot := models.ScheduleSlot{
		ID: "drop-linkedin", Date: date, Start: "09:15", End: "09:30",
		Kind: models.KindLinkedInPost, Platform: models.PlatformLinkedIn,
		Status: models.SlotStatusScheduled,
	}
	for _, slot := range []models.ScheduleSlot{twitterSlot, linkedinSlot} {
		if err := store.SaveSlot(slot); err != nil {
			t.Fatalf("save slot failed: %v", err)
		}
	}

	schedule, err := svc.RegenerateForPlatform(date, models.PlatformLinkedIn)
	if err != nil {
		t.Fatalf("RegenerateForPlatform failed: %v", err)
	}

	kept := false
	for _, slot := range schedule.Slots {
		if slot.ID == "keep-twitter" {
			kept = true
		}
		if slot.ID == "drop-linkedin" {
			t.Error("linkedin slot survived platform regenerate")
		}
	}
	if !kept {
		t.Error("twitter slot did not survive linkedin regenerate")
	}
	if len(schedule.Slots) != 2 {
		t.Errorf("expected the freed boundary to be refilled, got %d slots", len(schedule.Slots))
	}
}

func TestRegenerateForPlatform_GapWindowIgnoresLaterSlots(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "03:00", "04:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	// The preserved slots after the gap form an engage streak. They must
	// not count toward the 03:00 boundary's recency window: with an empty
	// window, engage dominates every other kind at that hour regardless of
	// jitter, while a trailing streak of three would collapse its weight.
	date := "2026-03-02"
	preserved := []struct{ id, start, end string }{
		{"later-1", "03:15", "03:30"},
		{"later-2", "03:30", "03:45"},
		{"later-3", "03:45", "04:00"},
	}
	for _, p := range preserved {
		slot := models.ScheduleSlot{
			ID: p.id, Date: date, Start: p.start, End: p.end,
			Kind: models.KindEngage, Platform: models.PlatformTwitter,
			Status: models.SlotStatusScheduled,
		}
		if err := store.SaveSlot(slot); err != nil {
			t.Fatalf("save slot failed: %v", err)
		}
	}

	schedule, err := svc.RegenerateForPlatform(date, models.PlatformLinkedIn)
	if err != nil {
		t.Fatalf("RegenerateForPlatform failed: %v", err)
	}

	var gap *models.ScheduleSlot
	for i := range schedule.Slots {
		if schedule.Slots[i].Start == "03:00" {
			gap = &schedule.Slots[i]
		}
	}
	if gap == nil {
		t.Fatalf("freed 03:00 boundary was not refilled, slots: %+v", schedule.Slots)
	}
	if gap.Kind != models.KindEngage {
		t.Errorf("later slots skewed the gap's recency window: got %s, want %s", gap.Kind, models.KindEngage)
	}
}

func TestGetCurrentActivity(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-02T09:20:00Z")

	slot := models.ScheduleSlot{
		ID: "current", Date: "2026-03-02", Start: "09:15", End: "09:30",
		Kind: models.KindEngage, Platform: models.PlatformTwitter,
		Status: models.SlotStatusScheduled,
	}
	if err := store.SaveSlot(slot); err != nil {
		t.Fatalf("save slot failed: %v", err)
	}

	got, err := svc.GetCurrentActivity()
	if err != nil {
		t.Fatalf("GetCurrentActivity failed: %v", err)
	}
	if got == nil || got.ID != "current" {
		t.Fatalf("expected slot 'current', got %+v", got)
	}
}

func TestGetCurrentActivity_EndBoundaryExcluded(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-02T09:30:00Z")

	slot := models.ScheduleSlot{
		ID: "ended", Date: "2026-03-02", Start: "09:15", End: "09:30",
		Kind: models.KindEngage, Platform: models.PlatformTwitter,
		Status: models.SlotStatusScheduled,
	}
	if err := store.SaveSlot(slot); err != nil {
		t.Fatalf("save slot failed: %v", err)
	}

	got, err := svc.GetCurrentActivity()
	if err != nil {
		t.Fatalf("GetCurrentActivity failed: %v", err)
	}
	if got != nil {
		t.Errorf("slot ending exactly now should not be current, got %s", got.ID)
	}
}

func TestGetNextActivity_SkipsNonScheduled(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-02T09:00:00Z")

	skipped := models.ScheduleSlot{
		ID: "skipped", Date: "2026-03-02", Start: "09:15", End: "09:30",
		Kind: models.KindEngage, Platform: models.PlatformTwitter,
		Status: models.SlotStatusSkipped,
	}
	upcoming := models.ScheduleSlot{
		ID: "upcoming", Date: "2026-03-02", Start: "09:30", End: "09:45",
		Kind: models.KindReply, Platform: models.PlatformTwitter,
		Status: models.SlotStatusScheduled,
	}
	for _, slot := range []models.ScheduleSlot{skipped, upcoming} {
		if err := store.SaveSlot(slot); err != nil {
			t.Fatalf("save slot failed: %v", err)
		}
	}

	got, err := svc.GetNextActivity()
	if err != nil {
		t.Fatalf("GetNextActivity failed: %v", err)
	}
	if got == nil || got.ID != "upcoming" {
		t.Fatalf("expected slot 'upcoming', got %+v", got)
	}
}

func TestUpdateSlotActivity_TerminalRequiresForce(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-02T10:00:00Z")

	slot := models.ScheduleSlot{
		ID: "done", Date: "2026-03-02", Start: "09:00", End: "09:15",
		Kind: models.KindTweet, Platform: models.PlatformTwitter,
		Status: models.SlotStatusCompleted,
	}
	if err := store.SaveSlot(slot); err != nil {
		t.Fatalf("save slot failed: %v", err)
	}

	err := svc.UpdateSlotActivity("done", models.KindReply, nil, false)
	if err == nil {
		t.Fatal("expected error swapping a completed slot without force")
	}

	if err := svc.UpdateSlotActivity("done", models.KindReply, nil, true); err != nil {
		t.Fatalf("forced swap failed: %v", err)
	}
	updated, err := store.GetSlot("done")
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if updated.Kind != models.KindReply {
		t.Errorf("expected kind reply after forced swap, got %s", updated.Kind)
	}
	if len(updated.Log) == 0 || !strings.Contains(updated.Log[len(updated.Log)-1].Note, "swapped") {
		t.Error("expected a swap log entry")
	}
}

func TestGetScheduleSummary(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, "2026-03-02T10:00:00Z")

	date := "2026-03-02"
	slots := []models.ScheduleSlot{
		{ID: "a", Date: date, Start: "09:00", End: "09:15", Kind: models.KindTweet, Status: models.SlotStatusCompleted},
		{ID: "b", Date: date, Start: "09:15", End: "09:30", Kind: models.KindEngage, Status: models.SlotStatusCompleted},
		{ID: "c", Date: date, Start: "09:30", End: "09:45", Kind: models.KindEngage, Status: models.SlotStatusFailed},
		{ID: "d", Date: date, Start: "09:45", End: "10:00", Kind: models.KindReply, Status: models.SlotStatusScheduled},
	}
	for _, slot := range slots {
		if err := store.SaveSlot(slot); err != nil {
			t.Fatalf("save slot failed: %v", err)
		}
	}

	summary, err := svc.GetScheduleSummary(date)
	if err != nil {
		t.Fatalf("GetScheduleSummary failed: %v", err)
	}
	if summary.TotalSlots != 4 {
		t.Errorf("expected 4 slots, got %d", summary.TotalSlots)
	}
	if summary.CompletionRate != 0.5 {
		t.Errorf("expected completion rate 0.5, got %f", summary.CompletionRate)
	}
	if summary.ActivityDistribution[models.KindEngage] != 2 {
		t.Errorf("expected 2 engage slots, got %d", summary.ActivityDistribution[models.KindEngage])
	}
	if summary.StatusDistribution[models.SlotStatusFailed] != 1 {
		t.Errorf("expected 1 failed slot, got %d", summary.StatusDistribution[models.SlotStatusFailed])
	}
}

func TestCreateDailySchedule_DailyGoalsFollowDistribution(t *testing.T) {
	store := newTestStore(t)
	setWindow(t, store, "08:00", "20:00")
	svc := newTestService(t, store, "2026-03-01T08:00:00Z")

	schedule, err := svc.CreateDailySchedule("2026-03-02", nil)
	if err != nil {
		t.Fatalf("CreateDailySchedule failed: %v", err)
	}
	if len(schedule.DailyGoals) == 0 {
		t.Fatal("expected daily goals derived from the template distribution")
	}
	total := 0
	for _, n := range schedule.DailyGoals {
		total += n
	}
	if total > len(schedule.Slots) {
		t.Errorf("daily goals (%d) exceed slot count (%d)", total, len(schedule.Slots))
	}
}
