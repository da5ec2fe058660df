package update

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"planvoice/internal/clock"
	"planvoice/internal/scheduler"
	"planvoice/internal/storage"
	"planvoice/internal/voice"
)

func waitForSpeechCmd(ch <-chan voice.Line) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return SpeechLineMsg{Line: line}
	}
}

func waitForSchedulerCmd(ch <-chan scheduler.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return SchedulerEventMsg{Event: ev}
	}
}

func refreshPlansCmd(store storage.Store, clk clock.Clock) tea.Cmd {
	return func() tea.Msg {
		plans, err := store.ListActiveToday(context.Background(), clk.Now())
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return PlansRefreshedMsg{Plans: plans}
	}
}

func loadHistoryCmd(store storage.Store, clk clock.Clock) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		now := clk.Now()
		stats, err := store.DailyStats(ctx, now, 7)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		records, err := store.ListRecentRecords(ctx, now, 7)
		if err != nil {
			return AppErrorMsg{Err: err}
		}

		days := make([]HistoryDay, 0, len(stats))
		for _, stat := range stats {
			day := HistoryDay{Stat: stat}
			for _, rec := range records {
				if rec.PlanDate.Format("2006-01-02") == stat.Date {
					day.Records = append(day.Records, rec)
				}
			}
			days = append(days, day)
		}
		return HistoryLoadedMsg{Days: days}
	}
}
