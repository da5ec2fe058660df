package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"planvoice/internal/model"
)

const (
	sqliteTimeLayout = time.RFC3339Nano
	sqliteDateLayout = "2006-01-02"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const planColumns = `id, task_name, start_time, end_time, create_date, repeat_rule,
	completed, completed_at, start_reminder_sent, end_reminder_sent, enabled`

func (s *SQLiteStore) CreatePlan(ctx context.Context, in model.Plan) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (task_name, start_time, end_time, create_date, repeat_rule,
			completed, completed_at, start_reminder_sent, end_reminder_sent, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TaskName, mustTime(in.StartTime), mustTime(in.EndTime), mustTime(in.CreateDate),
		string(in.Repeat), boolInt(in.Completed), nullTime(in.CompletedAt),
		boolInt(in.StartReminderSent), boolInt(in.EndReminderSent), boolInt(in.Enabled),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id int64) (model.Plan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, ErrNotFound
		}
		return model.Plan{}, err
	}
	return plan, nil
}

func (s *SQLiteStore) UpdatePlan(ctx context.Context, in model.Plan) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE plans
		SET task_name = ?, start_time = ?, end_time = ?, create_date = ?, repeat_rule = ?,
			completed = ?, completed_at = ?, start_reminder_sent = ?, end_reminder_sent = ?, enabled = ?
		WHERE id = ?`,
		in.TaskName, mustTime(in.StartTime), mustTime(in.EndTime), mustTime(in.CreateDate),
		string(in.Repeat), boolInt(in.Completed), nullTime(in.CompletedAt),
		boolInt(in.StartReminderSent), boolInt(in.EndReminderSent), boolInt(in.Enabled),
		in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListActiveToday(ctx context.Context, day time.Time) ([]model.Plan, error) {
	return s.listActive(ctx, day, ``)
}

func (s *SQLiteStore) ListNeedingStartReminder(ctx context.Context, day time.Time) ([]model.Plan, error) {
	return s.listActive(ctx, day, `AND start_reminder_sent = 0 AND completed = 0`)
}

func (s *SQLiteStore) ListNeedingEndReminder(ctx context.Context, day time.Time) ([]model.Plan, error) {
	return s.listActive(ctx, day, `AND start_reminder_sent = 1 AND end_reminder_sent = 0`)
}

// listActive applies the flag filters in SQL and the repeat-rule calendar
// check in Go; ordering is by minute of day because the stored reference
// dates are not comparable across plans.
func (s *SQLiteStore) listActive(ctx context.Context, day time.Time, extraWhere string) ([]model.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans WHERE enabled = 1 `+extraWhere)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Plan, 0)
	for rows.Next() {
		plan, scanErr := scanPlan(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if plan.ActiveOn(day) {
			out = append(out, plan)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return model.MinuteOfDay(out[i].StartTime) < model.MinuteOfDay(out[j].StartTime)
	})
	return out, nil
}

func (s *SQLiteStore) NextPlan(ctx context.Context, now time.Time) (model.Plan, error) {
	plans, err := s.ListActiveToday(ctx, now)
	if err != nil {
		return model.Plan{}, err
	}
	var next *model.Plan
	var nextStart time.Time
	for i := range plans {
		if plans[i].Completed {
			continue
		}
		start, _ := plans[i].WindowOn(now)
		if !start.After(now) {
			continue
		}
		if next == nil || start.Before(nextStart) {
			next = &plans[i]
			nextStart = start
		}
	}
	if next == nil {
		return model.Plan{}, ErrNotFound
	}
	return *next, nil
}

func (s *SQLiteStore) SetCompletion(ctx context.Context, id int64, completed bool, decidedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	var completedAt *time.Time
	if completed {
		completedAt = &decidedAt
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE plans SET completed = ?, completed_at = ? WHERE id = ?`,
		boolInt(completed), nullTime(completedAt), id,
	); err != nil {
		return err
	}

	dayStart, dayEnd := plan.WindowOn(decidedAt)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plan_records (plan_id, task_name, plan_date, start_time, end_time,
			completed, actual_completed_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_id, plan_date) DO UPDATE SET
			task_name = excluded.task_name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			completed = excluded.completed,
			actual_completed_at = excluded.actual_completed_at,
			recorded_at = excluded.recorded_at`,
		id, plan.TaskName, decidedAt.Format(sqliteDateLayout),
		mustTime(dayStart), mustTime(dayEnd),
		boolInt(completed), nullTime(completedAt), mustTime(decidedAt),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) SetStartReminderSent(ctx context.Context, id int64, sent bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET start_reminder_sent = ? WHERE id = ?`, boolInt(sent), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) SetEndReminderSent(ctx context.Context, id int64, sent bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET end_reminder_sent = ? WHERE id = ?`, boolInt(sent), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListRecentRecords(ctx context.Context, now time.Time, days int) ([]model.PlanRecord, error) {
	cutoff := now.AddDate(0, 0, -days).Format(sqliteDateLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, task_name, plan_date, start_time, end_time,
			completed, actual_completed_at, recorded_at
		FROM plan_records
		WHERE plan_date >= ?
		ORDER BY plan_date DESC, start_time ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.PlanRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DailyStats(ctx context.Context, now time.Time, days int) ([]DayStat, error) {
	cutoff := now.AddDate(0, 0, -days).Format(sqliteDateLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_date, COUNT(*), SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END)
		FROM plan_records
		WHERE plan_date >= ?
		GROUP BY plan_date
		ORDER BY plan_date DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DayStat, 0)
	for rows.Next() {
		var stat DayStat
		if err := rows.Scan(&stat.Date, &stat.Total, &stat.Completed); err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRecordsOlderThan(ctx context.Context, now time.Time, days int) error {
	cutoff := now.AddDate(0, 0, -days).Format(sqliteDateLayout)
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_records WHERE plan_date < ?`, cutoff)
	return err
}

const rolloverKey = "rollover_day"

func (s *SQLiteStore) RolloverDay(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, rolloverKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(sqliteDateLayout, value, time.Local)
}

func (s *SQLiteStore) SetRolloverDay(ctx context.Context, day time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		rolloverKey, day.Format(sqliteDateLayout))
	return err
}

func (s *SQLiteStore) ResetDailyFlags(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE plans
		SET start_reminder_sent = 0, end_reminder_sent = 0, completed = 0, completed_at = NULL
		WHERE repeat_rule != ?`, string(model.RepeatOnce))
	return err
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	local := tm.Local()
	return &local, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	tm, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	return tm.Local(), nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (model.Plan, error) {
	var out model.Plan
	var start, end, created string
	var repeat string
	var completed, startSent, endSent, enabled int
	var completedAt sql.NullString
	if err := s.Scan(&out.ID, &out.TaskName, &start, &end, &created, &repeat,
		&completed, &completedAt, &startSent, &endSent, &enabled); err != nil {
		return model.Plan{}, err
	}
	var err error
	if out.StartTime, err = parseRequiredTime(start); err != nil {
		return model.Plan{}, err
	}
	if out.EndTime, err = parseRequiredTime(end); err != nil {
		return model.Plan{}, err
	}
	if out.CreateDate, err = parseRequiredTime(created); err != nil {
		return model.Plan{}, err
	}
	if out.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return model.Plan{}, err
	}
	out.Repeat = model.RepeatRule(repeat)
	out.Completed = completed == 1
	out.StartReminderSent = startSent == 1
	out.EndReminderSent = endSent == 1
	out.Enabled = enabled == 1
	return out, nil
}

func scanRecord(s scanner) (model.PlanRecord, error) {
	var out model.PlanRecord
	var planDate, start, end, recorded string
	var completed int
	var actual sql.NullString
	if err := s.Scan(&out.ID, &out.PlanID, &out.TaskName, &planDate, &start, &end,
		&completed, &actual, &recorded); err != nil {
		return model.PlanRecord{}, err
	}
	day, err := time.ParseInLocation(sqliteDateLayout, planDate, time.Local)
	if err != nil {
		return model.PlanRecord{}, err
	}
	out.PlanDate = day
	if out.StartTime, err = parseRequiredTime(start); err != nil {
		return model.PlanRecord{}, err
	}
	if out.EndTime, err = parseRequiredTime(end); err != nil {
		return model.PlanRecord{}, err
	}
	if out.ActualCompletedAt, err = parseNullableTime(actual); err != nil {
		return model.PlanRecord{}, err
	}
	if out.RecordedAt, err = parseRequiredTime(recorded); err != nil {
		return model.PlanRecord{}, err
	}
	out.Completed = completed == 1
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
