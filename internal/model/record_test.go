package model

import (
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	rec := PlanRecord{
		PlanID:    7,
		TaskName:  "阅读",
		PlanDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
		StartTime: timeOfDay(18, 0),
		EndTime:   timeOfDay(18, 30),
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("expected valid record, got: %v", err)
	}

	rec.TaskName = "  "
	if err := rec.Validate(); err == nil {
		t.Fatal("expected error for blank task name")
	}
}

func TestRecordDurationMinutes(t *testing.T) {
	rec := PlanRecord{StartTime: timeOfDay(18, 0), EndTime: timeOfDay(18, 30)}
	if got := rec.DurationMinutes(); got != 30 {
		t.Fatalf("duration = %d, want 30", got)
	}
}

func TestRecordCompletedOnTime(t *testing.T) {
	early := timeOfDay(18, 20)
	late := timeOfDay(18, 40)

	rec := PlanRecord{StartTime: timeOfDay(18, 0), EndTime: timeOfDay(18, 30), Completed: true, ActualCompletedAt: &early}
	if !rec.CompletedOnTime() {
		t.Fatal("completion before end should count as on time")
	}

	rec.ActualCompletedAt = &late
	if rec.CompletedOnTime() {
		t.Fatal("completion after end should not count as on time")
	}

	rec.Completed = false
	rec.ActualCompletedAt = nil
	if rec.CompletedOnTime() {
		t.Fatal("incomplete record is never on time")
	}
}
