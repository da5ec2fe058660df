// Package scheduler runs the background reminder loop: it polls the
// plan store on a fixed interval, fires start and end reminders exactly
// once per plan per day, and auto-resolves plans nobody confirmed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"planvoice/internal/clock"
	"planvoice/internal/model"
	"planvoice/internal/storage"
	"planvoice/internal/voice"
)

const rolloverDayLayout = "2006-01-02"

type EventKind string

const (
	// EventStartReminder fires once while now is inside the lead window
	// before a plan's start.
	EventStartReminder EventKind = "start_reminder"
	// EventCompletionDue fires once when a plan's end time has passed;
	// the console answers it by opening the completion dialog.
	EventCompletionDue EventKind = "completion_due"
)

type Event struct {
	Kind     EventKind
	PlanID   int64
	TaskName string
	At       time.Time
}

type Config struct {
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
	StartLead     time.Duration
	Grace         time.Duration
	AnnounceDelay time.Duration
	BufferSize    int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  30 * time.Second,
		ErrorBackoff:  60 * time.Second,
		StartLead:     time.Minute,
		Grace:         3 * time.Minute,
		AnnounceDelay: 2 * time.Second,
		BufferSize:    16,
	}
}

type Engine struct {
	cfg     Config
	store   storage.Store
	speaker voice.Speaker
	clock   clock.Clock
	logger  *slog.Logger

	mu      sync.Mutex
	out     chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	lastDay string
}

func NewEngine(cfg Config, store storage.Store, speaker voice.Speaker, clk clock.Clock, logger *slog.Logger) *Engine {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		store:   store,
		speaker: speaker,
		clock:   clk,
		logger:  logger,
		out:     make(chan Event, cfg.BufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// C delivers reminder events to the console. Events are dropped, not
// blocked on, when the consumer falls behind.
func (e *Engine) C() <-chan Event {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

// Stop ends the loop and waits for the in-flight poll to finish, so no
// store write is cut off halfway.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First poll runs immediately so a restart re-arms from current
	// store state without waiting a full interval.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			wait := e.cfg.PollInterval
			if err := e.poll(ctx); err != nil {
				e.logger.Error("scheduler poll failed", "error", err)
				wait = e.cfg.ErrorBackoff
			}
			timer.Reset(wait)
		case <-e.stopCh:
			cancel()
			return
		}
	}
}

// poll runs one reconciliation pass. Every candidate is fully handled
// before the next, and nothing is cached across polls.
func (e *Engine) poll(ctx context.Context) error {
	now := e.clock.Now()
	e.rolloverIfNewDay(ctx, now)

	if err := e.sendStartReminders(ctx, now); err != nil {
		return err
	}
	return e.sendEndReminders(ctx, now)
}

// rolloverIfNewDay resets repeating-plan flags and sweeps old records
// the first poll after midnight. The last rollover day is persisted, so
// a process restarted on a new day still rolls over, and a same-day
// restart keeps the day's completions. Failures are logged, not fatal;
// the next poll retries.
func (e *Engine) rolloverIfNewDay(ctx context.Context, now time.Time) {
	day := now.Format(rolloverDayLayout)
	if e.lastDay == "" {
		stored, err := e.store.RolloverDay(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			if err := e.store.SetRolloverDay(ctx, now); err != nil {
				e.logger.Error("rollover day seed failed", "error", err)
				return
			}
			e.lastDay = day
			return
		}
		if err != nil {
			e.logger.Error("rollover day lookup failed", "error", err)
			return
		}
		e.lastDay = stored.Format(rolloverDayLayout)
	}
	if day == e.lastDay {
		return
	}
	if err := e.store.ResetDailyFlags(ctx); err != nil {
		e.logger.Error("daily flag reset failed", "error", err)
		return
	}
	if err := e.store.DeleteRecordsOlderThan(ctx, now, 7); err != nil {
		e.logger.Error("record retention sweep failed", "error", err)
		return
	}
	if err := e.store.SetRolloverDay(ctx, now); err != nil {
		e.logger.Error("rollover day update failed", "error", err)
		return
	}
	e.lastDay = day
}

func (e *Engine) sendStartReminders(ctx context.Context, now time.Time) error {
	plans, err := e.store.ListNeedingStartReminder(ctx, now)
	if err != nil {
		return fmt.Errorf("list start reminders: %w", err)
	}
	for _, plan := range plans {
		start, _ := plan.WindowOn(now)
		// Edge-triggered: only inside [start-lead, start). Once the
		// start has passed the reminder is missed, never late.
		if now.Before(start.Add(-e.cfg.StartLead)) || !now.Before(start) {
			continue
		}
		if err := e.store.SetStartReminderSent(ctx, plan.ID, true); err != nil {
			return fmt.Errorf("mark start reminder %d: %w", plan.ID, err)
		}
		e.speaker.Speak(fmt.Sprintf("「%s」马上要开始了，准备好哦", plan.TaskName))
		e.emit(Event{Kind: EventStartReminder, PlanID: plan.ID, TaskName: plan.TaskName, At: now})
	}
	return nil
}

func (e *Engine) sendEndReminders(ctx context.Context, now time.Time) error {
	plans, err := e.store.ListNeedingEndReminder(ctx, now)
	if err != nil {
		return fmt.Errorf("list end reminders: %w", err)
	}
	for _, plan := range plans {
		_, end := plan.WindowOn(now)
		if now.Before(end) {
			continue
		}
		if err := e.store.SetEndReminderSent(ctx, plan.ID, true); err != nil {
			return fmt.Errorf("mark end reminder %d: %w", plan.ID, err)
		}
		if plan.Completed {
			continue
		}
		e.speaker.Speak(fmt.Sprintf("「%s」的时间到了，完成了吗？", plan.TaskName))
		e.emit(Event{Kind: EventCompletionDue, PlanID: plan.ID, TaskName: plan.TaskName, At: now})
		e.watchForTimeout(plan)
	}
	return nil
}

// watchForTimeout auto-marks a plan not completed if no confirmation
// landed within the grace period. The completed flag is re-read first,
// so a manual answer always wins over the timeout.
func (e *Engine) watchForTimeout(plan model.Plan) {
	time.AfterFunc(e.cfg.Grace, func() {
		select {
		case <-e.stopCh:
			return
		default:
		}
		ctx := context.Background()
		fresh, err := e.store.GetPlan(ctx, plan.ID)
		if err != nil {
			e.logger.Error("auto-resolve lookup failed", "plan", plan.ID, "error", err)
			return
		}
		if fresh.Completed {
			return
		}
		if err := e.store.SetCompletion(ctx, plan.ID, false, e.clock.Now()); err != nil {
			e.logger.Error("auto-resolve failed", "plan", plan.ID, "error", err)
			return
		}
		e.speaker.Speak(fmt.Sprintf("「%s」超时未确认，先记为未完成，下次记得说一声哦", fresh.TaskName))
		time.AfterFunc(e.cfg.AnnounceDelay, e.announceNext)
	})
}

func (e *Engine) announceNext() {
	ctx := context.Background()
	now := e.clock.Now()
	next, err := e.store.NextPlan(ctx, now)
	if errors.Is(err, storage.ErrNotFound) {
		e.speaker.Speak("今天的计划都完成啦")
		return
	}
	if err != nil {
		e.logger.Error("next-plan lookup failed", "error", err)
		return
	}
	start, _ := next.WindowOn(now)
	minutes := int(start.Sub(now).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	e.speaker.Speak(fmt.Sprintf("下一个计划是「%s」，%d分钟后开始", next.TaskName, minutes))
}

func (e *Engine) emit(ev Event) {
	select {
	case e.out <- ev:
	default:
		atomic.AddUint64(&e.dropped, 1)
	}
}
