package model

import (
	"errors"
	"strings"
	"time"
)

// PlanRecord is the immutable historical snapshot of one day's execution of
// a plan. TaskName is denormalized so history survives plan deletion.
type PlanRecord struct {
	ID                int64
	PlanID            int64
	TaskName          string
	PlanDate          time.Time
	StartTime         time.Time
	EndTime           time.Time
	Completed         bool
	ActualCompletedAt *time.Time
	RecordedAt        time.Time
}

func (r PlanRecord) Validate() error {
	if r.PlanID == 0 {
		return errors.New("model: record plan id is required")
	}
	if strings.TrimSpace(r.TaskName) == "" {
		return errors.New("model: record task name is required")
	}
	if r.PlanDate.IsZero() {
		return errors.New("model: record plan date is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return errors.New("model: record start and end times are required")
	}
	return nil
}

func (r PlanRecord) DurationMinutes() int {
	return int(r.EndTime.Sub(r.StartTime) / time.Minute)
}

// CompletedOnTime reports whether the plan was confirmed done no later than
// its scheduled end.
func (r PlanRecord) CompletedOnTime() bool {
	return r.Completed && r.ActualCompletedAt != nil && !r.ActualCompletedAt.After(r.EndTime)
}
