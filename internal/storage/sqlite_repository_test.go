package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"planvoice/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "planvoice-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

// Monday.
var testDay = time.Date(2026, 2, 9, 0, 0, 0, 0, time.Local)

func testPlan(name string, startHour, endHour int) model.Plan {
	return model.Plan{
		TaskName:   name,
		StartTime:  testDay.Add(time.Duration(startHour) * time.Hour),
		EndTime:    testDay.Add(time.Duration(endHour) * time.Hour),
		CreateDate: testDay,
		Repeat:     model.RepeatOnce,
		Enabled:    true,
	}
}

func TestCreateGetUpdateDeletePlan(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	id, err := store.CreatePlan(ctx, testPlan("口算", 16, 17))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TaskName != "口算" || got.Repeat != model.RepeatOnce || !got.Enabled {
		t.Fatalf("unexpected plan after create: %+v", got)
	}
	if !got.StartTime.Equal(testDay.Add(16 * time.Hour)) {
		t.Fatalf("start time round trip: got %v", got.StartTime)
	}
	if got.CompletedAt != nil {
		t.Fatalf("completed_at should be nil, got %v", got.CompletedAt)
	}

	got.TaskName = "朗读"
	got.Repeat = model.RepeatDaily
	if err := store.UpdatePlan(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.TaskName != "朗读" || updated.Repeat != model.RepeatDaily {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := store.DeletePlan(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetPlan(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMissingPlanReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	if _, err := store.GetPlan(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	plan := testPlan("不存在", 8, 9)
	plan.ID = 999
	if err := store.UpdatePlan(ctx, plan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := store.DeletePlan(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	if err := store.SetStartReminderSent(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set flag: expected ErrNotFound, got %v", err)
	}
	if err := store.SetCompletion(ctx, 999, true, testDay); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set completion: expected ErrNotFound, got %v", err)
	}
}

func TestCreatePlanRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	bad := testPlan("颠倒", 17, 16)
	if _, err := store.CreatePlan(t.Context(), bad); err == nil {
		t.Fatal("expected validation error for end before start")
	}
}

func TestListActiveTodayFiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	morning := testPlan("晨读", 7, 8)
	evening := testPlan("口算", 19, 20)
	weekdayOnly := testPlan("练字", 12, 13)
	weekdayOnly.Repeat = model.RepeatWeekday
	// Created yesterday, repeats daily: still active today, and must sort
	// by clock time rather than by the stored reference date.
	earlier := testPlan("早操", 6, 7)
	earlier.CreateDate = testDay.AddDate(0, 0, -1)
	earlier.StartTime = earlier.StartTime.AddDate(0, 0, -1)
	earlier.EndTime = earlier.EndTime.AddDate(0, 0, -1)
	earlier.Repeat = model.RepeatDaily
	disabled := testPlan("停用", 9, 10)
	disabled.Enabled = false
	staleOnce := testPlan("昨天", 10, 11)
	staleOnce.CreateDate = testDay.AddDate(0, 0, -1)

	for _, p := range []model.Plan{evening, morning, weekdayOnly, earlier, disabled, staleOnce} {
		if _, err := store.CreatePlan(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.TaskName, err)
		}
	}

	plans, err := store.ListActiveToday(ctx, testDay)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"早操", "晨读", "练字", "口算"}
	if len(plans) != len(want) {
		t.Fatalf("expected %d plans, got %d: %+v", len(want), len(plans), plans)
	}
	for i, name := range want {
		if plans[i].TaskName != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, plans[i].TaskName)
		}
	}

	// Saturday drops the weekday-only plan.
	saturday := testDay.AddDate(0, 0, 5)
	weekend, err := store.ListActiveToday(ctx, saturday)
	if err != nil {
		t.Fatalf("list saturday: %v", err)
	}
	if len(weekend) != 1 || weekend[0].TaskName != "早操" {
		t.Fatalf("saturday should keep only the daily plan, got %+v", weekend)
	}
}

func TestReminderListings(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	fresh := testPlan("未提醒", 8, 9)
	started := testPlan("进行中", 10, 11)
	started.StartReminderSent = true
	done := testPlan("已结束", 12, 13)
	done.StartReminderSent = true
	done.EndReminderSent = true
	completed := testPlan("已完成", 14, 15)
	completed.StartReminderSent = true
	completed.Completed = true
	ts := testDay.Add(15 * time.Hour)
	completed.CompletedAt = &ts

	for _, p := range []model.Plan{fresh, started, done, completed} {
		if _, err := store.CreatePlan(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.TaskName, err)
		}
	}

	starts, err := store.ListNeedingStartReminder(ctx, testDay)
	if err != nil {
		t.Fatalf("start listing: %v", err)
	}
	if len(starts) != 1 || starts[0].TaskName != "未提醒" {
		t.Fatalf("start listing: got %+v", starts)
	}

	ends, err := store.ListNeedingEndReminder(ctx, testDay)
	if err != nil {
		t.Fatalf("end listing: %v", err)
	}
	// A plan owes an end check only once its start reminder went out, even
	// if it was completed meanwhile; the scheduler rechecks that flag. A
	// plan whose start window was missed stays unresolved for the day.
	if len(ends) != 2 {
		t.Fatalf("end listing: expected 2 plans, got %+v", ends)
	}
	for _, p := range ends {
		switch p.TaskName {
		case "已结束":
			t.Fatalf("end listing must exclude plans whose end reminder was sent")
		case "未提醒":
			t.Fatalf("end listing must exclude plans whose start reminder never went out")
		}
	}
}

func TestSetCompletionUpsertsSingleRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	id, err := store.CreatePlan(ctx, testPlan("口算", 16, 17))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	decidedAt := testDay.Add(17 * time.Hour)
	if err := store.SetCompletion(ctx, id, false, decidedAt); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	// The child answers after the automatic timeout marked it missed; the
	// same day's record is overwritten, not duplicated.
	if err := store.SetCompletion(ctx, id, true, decidedAt.Add(2*time.Minute)); err != nil {
		t.Fatalf("second completion: %v", err)
	}

	records, err := store.ListRecentRecords(ctx, decidedAt, 7)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	rec := records[0]
	if !rec.Completed || rec.ActualCompletedAt == nil {
		t.Fatalf("record should reflect the later decision: %+v", rec)
	}
	if rec.TaskName != "口算" || rec.PlanID != id {
		t.Fatalf("record identity mismatch: %+v", rec)
	}

	plan, err := store.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !plan.Completed || plan.CompletedAt == nil {
		t.Fatalf("plan flags should follow the decision: %+v", plan)
	}
}

func TestNextPlanSkipsCompletedAndStarted(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	past := testPlan("已开始", 8, 9)
	soon := testPlan("马上", 15, 16)
	later := testPlan("稍后", 18, 19)
	finished := testPlan("做完了", 14, 15)
	finished.Completed = true
	ts := testDay.Add(13 * time.Hour)
	finished.CompletedAt = &ts

	for _, p := range []model.Plan{later, past, finished, soon} {
		if _, err := store.CreatePlan(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.TaskName, err)
		}
	}

	now := testDay.Add(12 * time.Hour)
	next, err := store.NextPlan(ctx, now)
	if err != nil {
		t.Fatalf("next plan: %v", err)
	}
	if next.TaskName != "马上" {
		t.Fatalf("expected 马上, got %s", next.TaskName)
	}

	if _, err := store.NextPlan(ctx, testDay.Add(20*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after the last plan, got %v", err)
	}
}

func TestDailyStatsAndRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	plan := testPlan("口算", 16, 17)
	plan.Repeat = model.RepeatDaily
	id, err := store.CreatePlan(ctx, plan)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// One completed decision per day over ten days.
	for offset := 0; offset < 10; offset++ {
		decidedAt := testDay.AddDate(0, 0, -offset).Add(17 * time.Hour)
		if err := store.SetCompletion(ctx, id, offset%2 == 0, decidedAt); err != nil {
			t.Fatalf("completion day -%d: %v", offset, err)
		}
	}

	now := testDay.Add(18 * time.Hour)
	stats, err := store.DailyStats(ctx, now, 7)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 8 {
		t.Fatalf("expected 8 days inside the window, got %d", len(stats))
	}
	if stats[0].Date != testDay.Format("2006-01-02") {
		t.Fatalf("stats should be newest first, got %s", stats[0].Date)
	}
	if stats[0].Total != 1 || stats[0].Completed != 1 {
		t.Fatalf("unexpected head stat: %+v", stats[0])
	}
	if got := stats[0].CompletionRate(); got != 1 {
		t.Fatalf("completion rate: got %v", got)
	}

	if err := store.DeleteRecordsOlderThan(ctx, now, 7); err != nil {
		t.Fatalf("retention delete: %v", err)
	}
	remaining, err := store.ListRecentRecords(ctx, now, 30)
	if err != nil {
		t.Fatalf("list after retention: %v", err)
	}
	if len(remaining) != 8 {
		t.Fatalf("expected 8 records after retention, got %d", len(remaining))
	}
}

func TestRolloverDayRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	if _, err := store.RolloverDay(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before the first rollover, got %v", err)
	}

	if err := store.SetRolloverDay(ctx, testDay); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.RolloverDay(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Equal(testDay) {
		t.Fatalf("rollover day round trip: got %v", got)
	}

	// A later day overwrites the single row.
	next := testDay.AddDate(0, 0, 1)
	if err := store.SetRolloverDay(ctx, next); err != nil {
		t.Fatalf("set again: %v", err)
	}
	got, err = store.RolloverDay(ctx)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if !got.Equal(next) {
		t.Fatalf("rollover day should follow the last write, got %v", got)
	}
}

func TestResetDailyFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	daily := testPlan("每天", 8, 9)
	daily.Repeat = model.RepeatDaily
	daily.Completed = true
	daily.StartReminderSent = true
	daily.EndReminderSent = true
	ts := testDay.Add(9 * time.Hour)
	daily.CompletedAt = &ts
	once := testPlan("当天", 10, 11)
	once.Completed = true
	once.CompletedAt = &ts

	dailyID, err := store.CreatePlan(ctx, daily)
	if err != nil {
		t.Fatalf("create daily: %v", err)
	}
	onceID, err := store.CreatePlan(ctx, once)
	if err != nil {
		t.Fatalf("create once: %v", err)
	}

	if err := store.ResetDailyFlags(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	gotDaily, err := store.GetPlan(ctx, dailyID)
	if err != nil {
		t.Fatalf("get daily: %v", err)
	}
	if gotDaily.Completed || gotDaily.StartReminderSent || gotDaily.EndReminderSent || gotDaily.CompletedAt != nil {
		t.Fatalf("daily plan flags should be cleared: %+v", gotDaily)
	}

	gotOnce, err := store.GetPlan(ctx, onceID)
	if err != nil {
		t.Fatalf("get once: %v", err)
	}
	if !gotOnce.Completed {
		t.Fatalf("one-off plan must keep its completion state: %+v", gotOnce)
	}
}
