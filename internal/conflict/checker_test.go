package conflict

import (
	"path/filepath"
	"testing"
	"time"

	"planvoice/internal/clock"
	"planvoice/internal/model"
	"planvoice/internal/storage"
)

var day = time.Date(2026, 2, 9, 0, 0, 0, 0, time.Local)

func newChecker(t *testing.T) (*Checker, storage.Store) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "conflict-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewChecker(store, &clock.Fixed{Current: day.Add(8 * time.Hour)}), store
}

func addPlan(t *testing.T, store storage.Store, name string, startHour, endHour int) int64 {
	t.Helper()
	id, err := store.CreatePlan(t.Context(), model.Plan{
		TaskName:   name,
		StartTime:  day.Add(time.Duration(startHour) * time.Hour),
		EndTime:    day.Add(time.Duration(endHour) * time.Hour),
		CreateDate: day,
		Repeat:     model.RepeatOnce,
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return id
}

func TestFindConflictsOverlapping(t *testing.T) {
	checker, store := newChecker(t)
	addPlan(t, store, "口算", 16, 17)
	addPlan(t, store, "朗读", 18, 19)

	cases := []struct {
		name       string
		start, end int
		want       []string
	}{
		{"inside existing", 16, 17, []string{"口算"}},
		{"straddles start", 15, 17, []string{"口算"}},
		{"straddles end", 16, 18, []string{"口算"}},
		{"covers both", 15, 20, []string{"口算", "朗读"}},
		{"touching boundary is free", 17, 18, nil},
		{"before everything", 8, 9, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.FindConflicts(t.Context(),
				day.Add(time.Duration(tc.start)*time.Hour),
				day.Add(time.Duration(tc.end)*time.Hour), 0)
			if err != nil {
				t.Fatalf("find conflicts: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d conflicts, got %+v", len(tc.want), got)
			}
			for i, name := range tc.want {
				if got[i].TaskName != name {
					t.Fatalf("conflict %d: expected %s, got %s", i, name, got[i].TaskName)
				}
			}
		})
	}
}

func TestFindConflictsExcludesEditedPlan(t *testing.T) {
	checker, store := newChecker(t)
	id := addPlan(t, store, "口算", 16, 17)

	got, err := checker.FindConflicts(t.Context(), day.Add(16*time.Hour), day.Add(17*time.Hour), id)
	if err != nil {
		t.Fatalf("find conflicts: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("a plan must not conflict with itself: %+v", got)
	}
}

func TestFindConflictsIgnoresOtherDays(t *testing.T) {
	checker, store := newChecker(t)
	past := model.Plan{
		TaskName:   "昨天",
		StartTime:  day.AddDate(0, 0, -1).Add(16 * time.Hour),
		EndTime:    day.AddDate(0, 0, -1).Add(17 * time.Hour),
		CreateDate: day.AddDate(0, 0, -1),
		Repeat:     model.RepeatOnce,
		Enabled:    true,
	}
	if _, err := store.CreatePlan(t.Context(), past); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := checker.FindConflicts(t.Context(), day.Add(16*time.Hour), day.Add(17*time.Hour), 0)
	if err != nil {
		t.Fatalf("find conflicts: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("a one-off plan from yesterday is not active today: %+v", got)
	}
}
