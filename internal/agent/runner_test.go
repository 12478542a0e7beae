package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulseplan/pulseplan/internal/lifecycle"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/scheduler"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
)

type fakeExecutor struct {
	mu       sync.Mutex
	calls    int
	fail     bool
	detail   string
	notified chan struct{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{notified: make(chan struct{}, 16)}
}

func (e *fakeExecutor) Dispatch(ctx context.Context, kind models.ActivityKind, config models.ActivityConfig) (*models.ActivityResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	e.notified <- struct{}{}
	if e.fail {
		return nil, context.DeadlineExceeded
	}
	return &models.ActivityResult{Success: true, Interactions: 3, Detail: e.detail}, nil
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// seedTodaySlot stores a schedule for today containing one slot covering the
// current wall-clock minute, so Tick has a dispatchable current activity.
func seedTodaySlot(t *testing.T, store *storage.MemoryStore) string {
	t.Helper()
	now := time.Now()
	date := now.Format("2006-01-02")
	startMin := (utils.MinutesOfDay(now) / 15) * 15
	slot := models.ScheduleSlot{
		ID: "current-slot", Date: date,
		Start: utils.FormatMinutes(startMin), End: utils.FormatMinutes(startMin + 15),
		Kind: models.KindEngage, Platform: models.PlatformTwitter,
		Status: models.SlotStatusScheduled,
	}
	if err := store.SaveSlot(slot); err != nil {
		t.Fatalf("save slot failed: %v", err)
	}
	if err := store.SaveSchedule(models.DailySchedule{Date: date, Slots: []models.ScheduleSlot{slot}}); err != nil {
		t.Fatalf("save schedule failed: %v", err)
	}
	return slot.ID
}

func newTestRunner(t *testing.T, exec *fakeExecutor) (*Runner, *storage.MemoryStore, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	slotID := seedTodaySlot(t, store)
	runner := NewRunner(store, scheduler.New(store), lifecycle.New(store), exec)
	return runner, store, slotID
}

func waitForStatus(t *testing.T, store *storage.MemoryStore, id string, want models.SlotStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		slot, err := store.GetSlot(id)
		if err == nil && slot.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	slot, _ := store.GetSlot(id)
	t.Fatalf("slot %s never reached %s (stuck at %s)", id, want, slot.Status)
}

func TestTick_DispatchesCurrentSlotOnce(t *testing.T) {
	exec := newFakeExecutor()
	runner, store, slotID := newTestRunner(t, exec)

	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	select {
	case <-exec.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("executor was never invoked")
	}
	waitForStatus(t, store, slotID, models.SlotStatusCompleted)

	// The same slot must not be dispatched again on subsequent ticks.
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick failed: %v", err)
	}
	if n := exec.callCount(); n != 1 {
		t.Errorf("expected exactly one dispatch, got %d", n)
	}
}

func TestTick_FailedDispatchMarksSlotFailed(t *testing.T) {
	exec := newFakeExecutor()
	exec.fail = true
	runner, store, slotID := newTestRunner(t, exec)

	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	waitForStatus(t, store, slotID, models.SlotStatusFailed)

	slot, _ := store.GetSlot(slotID)
	if slot.Result == nil || slot.Result.Success {
		t.Errorf("expected failure result recorded, got %+v", slot.Result)
	}
}

func TestTick_NoCurrentSlotIsANoop(t *testing.T) {
	exec := newFakeExecutor()
	store := storage.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	date := time.Now().Format("2006-01-02")
	if err := store.SaveSchedule(models.DailySchedule{Date: date}); err != nil {
		t.Fatalf("save schedule failed: %v", err)
	}

	runner := NewRunner(store, scheduler.New(store), lifecycle.New(store), exec)
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n := exec.callCount(); n != 0 {
		t.Errorf("expected no dispatch with an empty schedule, got %d", n)
	}
}

func TestRun_StopsPromptlyOnCancel(t *testing.T) {
	exec := newFakeExecutor()
	runner, _, _ := newTestRunner(t, exec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = runner.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestTick_StopRequestBlocksDispatch(t *testing.T) {
	exec := newFakeExecutor()
	runner, store, slotID := newTestRunner(t, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runner.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n := exec.callCount(); n != 0 {
		t.Errorf("dispatch began after the stop request, %d call(s)", n)
	}
	slot, err := store.GetSlot(slotID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if slot.Status != models.SlotStatusScheduled {
		t.Errorf("slot left the scheduled state after the stop request: now %s", slot.Status)
	}
}

// flakyStore fails a fixed number of status updates before recovering.
type flakyStore struct {
	*storage.MemoryStore
	failures int
}

func (s *flakyStore) UpdateSlotStatus(id string, status models.SlotStatus, result *models.ActivityResult, entry models.LogEntry) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	return s.MemoryStore.UpdateSlotStatus(id, status, result, entry)
}

func TestTick_TransientStartFailureRetriesNextTick(t *testing.T) {
	exec := newFakeExecutor()
	mem := storage.NewMemoryStore()
	if err := mem.Init(); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	slotID := seedTodaySlot(t, mem)
	store := &flakyStore{MemoryStore: mem, failures: 1}
	runner := NewRunner(store, scheduler.New(store), lifecycle.New(store), exec)

	if err := runner.Tick(context.Background()); err == nil {
		t.Fatal("expected the first tick to surface the store error")
	}
	if n := exec.callCount(); n != 0 {
		t.Fatalf("dispatch began despite the failed transition, %d call(s)", n)
	}
	slot, _ := mem.GetSlot(slotID)
	if slot.Status != models.SlotStatusScheduled {
		t.Fatalf("slot status changed despite the failed transition: %s", slot.Status)
	}

	// Store recovered; the same slot must still be dispatchable.
	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick failed: %v", err)
	}
	waitForStatus(t, mem, slotID, models.SlotStatusCompleted)
	if n := exec.callCount(); n != 1 {
		t.Errorf("expected exactly one dispatch after recovery, got %d", n)
	}
}

func TestTick_IgnoresSlotAlreadyInProgress(t *testing.T) {
	exec := newFakeExecutor()
	runner, store, slotID := newTestRunner(t, exec)

	// Simulate an earlier tick having started the slot.
	if err := store.UpdateSlotStatus(slotID, models.SlotStatusInProgress, nil, models.LogEntry{At: time.Now().Format(time.RFC3339), Note: "execution started"}); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	if err := runner.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if n := exec.callCount(); n != 0 {
		t.Errorf("expected no dispatch for an in-progress slot, got %d", n)
	}
}
