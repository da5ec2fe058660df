package storage

import (
	"context"
	"errors"
	"time"

	"planvoice/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// DayStat summarizes one day of history records.
type DayStat struct {
	Date      string
	Total     int
	Completed int
}

func (s DayStat) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Store is the plan store contract shared by the dialog machine and the
// reminder scheduler. Every call is individually atomic; no locks are held
// across calls.
type Store interface {
	CreatePlan(ctx context.Context, in model.Plan) (int64, error)
	GetPlan(ctx context.Context, id int64) (model.Plan, error)
	UpdatePlan(ctx context.Context, in model.Plan) error
	DeletePlan(ctx context.Context, id int64) error

	// ListActiveToday returns enabled plans whose repeat rule schedules
	// them on the given day, ordered by start time.
	ListActiveToday(ctx context.Context, day time.Time) ([]model.Plan, error)
	// ListNeedingStartReminder returns active-today plans that are enabled,
	// not completed, and whose start reminder has not been sent.
	ListNeedingStartReminder(ctx context.Context, day time.Time) ([]model.Plan, error)
	// ListNeedingEndReminder returns active-today plans whose start
	// reminder was sent and whose end reminder has not been, completed or
	// not. A plan whose start window was missed entirely stays unresolved
	// for the day. Callers recheck the completion flag before prompting.
	ListNeedingEndReminder(ctx context.Context, day time.Time) ([]model.Plan, error)
	// NextPlan returns the earliest not-completed plan whose start today
	// is strictly after now, or ErrNotFound.
	NextPlan(ctx context.Context, now time.Time) (model.Plan, error)

	// SetCompletion records a completion decision and upserts the day's
	// PlanRecord in the same transaction. decidedAt supplies both the
	// completion timestamp and the record's calendar day.
	SetCompletion(ctx context.Context, id int64, completed bool, decidedAt time.Time) error
	SetStartReminderSent(ctx context.Context, id int64, sent bool) error
	SetEndReminderSent(ctx context.Context, id int64, sent bool) error

	ListRecentRecords(ctx context.Context, now time.Time, days int) ([]model.PlanRecord, error)
	DailyStats(ctx context.Context, now time.Time, days int) ([]DayStat, error)
	DeleteRecordsOlderThan(ctx context.Context, now time.Time, days int) error

	// ResetDailyFlags clears reminder flags and completion for repeating
	// plans; the daily-rollover trigger calls it once per day.
	ResetDailyFlags(ctx context.Context) error
	// RolloverDay returns the calendar day of the last completed daily
	// rollover, or ErrNotFound before the first one. Persisting the day
	// keeps a restart from skipping or repeating the rollover.
	RolloverDay(ctx context.Context) (time.Time, error)
	SetRolloverDay(ctx context.Context, day time.Time) error
}
