package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRepeatRule = errors.New("model: invalid repeat rule")

type RepeatRule string

const (
	RepeatOnce    RepeatRule = "once"
	RepeatWeekday RepeatRule = "weekday"
	RepeatDaily   RepeatRule = "daily"
)

func (r RepeatRule) IsValid() bool {
	switch r {
	case RepeatOnce, RepeatWeekday, RepeatDaily:
		return true
	default:
		return false
	}
}

// Label returns the spoken description of the rule.
func (r RepeatRule) Label() string {
	switch r {
	case RepeatOnce:
		return "当天"
	case RepeatWeekday:
		return "学习日"
	case RepeatDaily:
		return "每天"
	default:
		return "未知"
	}
}

// Plan is a one-off or repeating task with a daily time window. StartTime
// and EndTime carry an arbitrary reference date; only their hour and minute
// are meaningful.
type Plan struct {
	ID                int64
	TaskName          string
	StartTime         time.Time
	EndTime           time.Time
	CreateDate        time.Time
	Repeat            RepeatRule
	Completed         bool
	CompletedAt       *time.Time
	StartReminderSent bool
	EndReminderSent   bool
	Enabled           bool
}

func (p Plan) Validate() error {
	if strings.TrimSpace(p.TaskName) == "" {
		return errors.New("model: plan task name is required")
	}
	if !p.Repeat.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRepeatRule, p.Repeat)
	}
	if p.StartTime.IsZero() || p.EndTime.IsZero() {
		return errors.New("model: plan start and end times are required")
	}
	if MinuteOfDay(p.StartTime) >= MinuteOfDay(p.EndTime) {
		return errors.New("model: plan end time must be after start time")
	}
	if p.CreateDate.IsZero() {
		return errors.New("model: plan create date is required")
	}
	if p.Completed && p.CompletedAt == nil {
		return errors.New("model: completed_at is required when plan is completed")
	}
	if !p.Completed && p.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when plan is not completed")
	}
	return nil
}

// ActiveOn reports whether the repeat rule schedules the plan on the given
// calendar day. Enabled is the caller's concern.
func (p Plan) ActiveOn(day time.Time) bool {
	switch p.Repeat {
	case RepeatOnce:
		return sameDate(p.CreateDate, day)
	case RepeatWeekday:
		wd := day.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	case RepeatDaily:
		return true
	default:
		return false
	}
}

// WindowOn anchors the plan's time-of-day window onto the given day,
// seconds zeroed, in the day's location.
func (p Plan) WindowOn(day time.Time) (start, end time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	start = time.Date(y, m, d, p.StartTime.Hour(), p.StartTime.Minute(), 0, 0, loc)
	end = time.Date(y, m, d, p.EndTime.Hour(), p.EndTime.Minute(), 0, 0, loc)
	return start, end
}

// MinuteOfDay collapses a timestamp to its minute offset within the day.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Overlaps reports whether two half-open time-of-day windows intersect.
// Windows that merely touch at an endpoint do not overlap.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	s1, e1 := MinuteOfDay(start1), MinuteOfDay(end1)
	s2, e2 := MinuteOfDay(start2), MinuteOfDay(end2)
	return s1 < e2 && s2 < e1
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
