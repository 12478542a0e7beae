package agent

import (
	"context"
	"sync"
	"time"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/executor"
	"github.com/pulseplan/pulseplan/internal/lifecycle"
	"github.com/pulseplan/pulseplan/internal/logger"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/scheduler"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
)

// Runner is the polling control loop. Every poll interval it makes sure
// today's schedule exists, checks whether the current wall-clock time falls
// inside a scheduled slot, and hands at most one such slot to the executor.
// A slot is dispatched at most once per process: dedupe is by slot ID, so a
// slot still in progress on the next tick is not re-dispatched.
type Runner struct {
	store     storage.Provider
	service   *scheduler.Service
	lifecycle *lifecycle.Manager
	exec      executor.Executor
	clock     func() time.Time

	mu             sync.Mutex
	wg             sync.WaitGroup
	currentDate    string
	lastDispatched string
}

func NewRunner(store storage.Provider, service *scheduler.Service, lc *lifecycle.Manager, exec executor.Executor) *Runner {
	return &Runner{
		store:     store,
		service:   service,
		lifecycle: lc,
		exec:      exec,
		clock:     time.Now,
	}
}

// Run polls until ctx is cancelled, then waits for any in-flight dispatch to
// finish before returning. A failing tick never stops the loop; the wait
// between attempts backs off up to a cap and resets on the next success.
func (r *Runner) Run(ctx context.Context) error {
	logger.Info("Runner started", "poll_interval", r.pollInterval())

	backoff := time.Duration(0)
	for {
		if err := r.Tick(ctx); err != nil {
			if backoff == 0 {
				backoff = r.pollInterval()
			} else {
				backoff *= 2
			}
			if backoff > constants.MaxBackoff {
				backoff = constants.MaxBackoff
			}
			logger.Error("Tick failed", "error", err, "retry_in", backoff)
		} else {
			backoff = 0
		}

		wait := r.pollInterval()
		if backoff > 0 {
			wait = backoff
		}
		if !r.sleep(ctx, wait) {
			break
		}
	}

	logger.Info("Runner stopping, draining in-flight work")
	r.wg.Wait()
	logger.Info("Runner stopped")
	return nil
}

// Tick performs a single control-loop iteration. Exported so the loop body
// can be driven deterministically without the timing machinery.
func (r *Runner) Tick(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	settings, err := r.store.GetSettings()
	if err != nil {
		return err
	}

	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return err
	}
	now := r.clock().In(loc)
	today := now.Format(constants.DateFormat)

	r.mu.Lock()
	rolled := today != r.currentDate
	r.mu.Unlock()
	if rolled {
		if _, err := r.service.GetOrCreateDailySchedule(today, false, settings.DisabledActivities); err != nil {
			return err
		}
		r.mu.Lock()
		r.currentDate = today
		r.mu.Unlock()
		logger.Info("Schedule ready", "date", today)
	}

	slot, err := r.service.GetCurrentActivity()
	if err != nil {
		return err
	}
	if slot == nil || slot.Status != models.SlotStatusScheduled {
		return nil
	}

	r.mu.Lock()
	already := slot.ID == r.lastDispatched
	r.mu.Unlock()
	if already {
		return nil
	}

	// A stop request observed here means no new dispatch begins; the slot
	// stays SCHEDULED for the next run.
	if ctx.Err() != nil {
		return nil
	}

	// Dedupe is recorded only once the transition lands, so a transient
	// store failure leaves the slot eligible for the next tick.
	if err := r.lifecycle.Start(slot.ID); err != nil {
		return err
	}
	r.mu.Lock()
	r.lastDispatched = slot.ID
	r.mu.Unlock()
	logger.Info("Dispatching activity", "slot", slot.ID, "kind", slot.Kind, "start", slot.Start)

	r.wg.Add(1)
	go r.dispatch(ctx, *slot)
	return nil
}

// dispatch runs on its own goroutine so a slow executor never blocks the
// poll loop. Executor failure marks the slot FAILED; the loop keeps going.
func (r *Runner) dispatch(ctx context.Context, slot models.ScheduleSlot) {
	defer r.wg.Done()

	dctx, cancel := context.WithTimeout(ctx, constants.DispatchTimeout)
	defer cancel()

	result, err := r.exec.Dispatch(dctx, slot.Kind, slot.Config)
	if err != nil {
		logger.Error("Activity failed", "slot", slot.ID, "kind", slot.Kind, "error", err)
		if ferr := r.lifecycle.Fail(slot.ID, err.Error()); ferr != nil {
			logger.Error("Failed to record slot failure", "slot", slot.ID, "error", ferr)
		}
		return
	}

	if cerr := r.lifecycle.Complete(slot.ID, result); cerr != nil {
		logger.Error("Failed to record slot completion", "slot", slot.ID, "error", cerr)
		return
	}
	logger.Info("Activity completed", "slot", slot.ID, "kind", slot.Kind, "interactions", result.Interactions)
}

func (r *Runner) pollInterval() time.Duration {
	settings, err := r.store.GetSettings()
	if err != nil || settings.PollIntervalSec <= 0 {
		return constants.DefaultPollInterval
	}
	return time.Duration(settings.PollIntervalSec) * time.Second
}

// sleep waits for d in small increments so cancellation is observed within
// constants.WaitGranularity. Returns false once ctx is done.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	deadline := r.clock().Add(d)
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := constants.WaitGranularity
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
	}
}
