// Package conflict answers whether a proposed time slot collides with
// plans already scheduled for the same day.
package conflict

import (
	"context"
	"time"

	"planvoice/internal/clock"
	"planvoice/internal/model"
	"planvoice/internal/storage"
)

type Checker struct {
	store storage.Store
	clock clock.Clock
}

func NewChecker(store storage.Store, clk clock.Clock) *Checker {
	return &Checker{store: store, clock: clk}
}

// FindConflicts returns today's active plans whose window overlaps
// [start, end), ordered by start time. excludeID skips the plan being
// edited so it never conflicts with itself; pass 0 when adding.
func (c *Checker) FindConflicts(ctx context.Context, start, end time.Time, excludeID int64) ([]model.Plan, error) {
	today := c.clock.Now()
	plans, err := c.store.ListActiveToday(ctx, today)
	if err != nil {
		return nil, err
	}
	conflicts := make([]model.Plan, 0)
	for _, plan := range plans {
		if plan.ID == excludeID {
			continue
		}
		if model.Overlaps(start, end, plan.StartTime, plan.EndTime) {
			conflicts = append(conflicts, plan)
		}
	}
	return conflicts, nil
}
