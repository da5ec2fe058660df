package update

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"planvoice/internal/dialog"
	"planvoice/internal/parse"
	"planvoice/internal/scheduler"
	"planvoice/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		refreshPlansCmd(m.store, m.clock),
		loadHistoryCmd(m.store, m.clock),
	}
	if m.speech != nil {
		cmds = append(cmds, waitForSpeechCmd(m.speech.Lines()))
	}
	if m.engine != nil {
		cmds = append(cmds, waitForSchedulerCmd(m.engine.C()))
	}
	if m.machine != nil {
		machine := m.machine
		cmds = append(cmds, func() tea.Msg {
			if err := machine.Welcome(context.Background()); err != nil {
				return AppErrorMsg{Err: err}
			}
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.Listening {
			var cmd tea.Cmd
			m.listenSpinner, cmd = m.listenSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case SpeechLineMsg:
		m.appendSpoken(typed.Line)
		return m, waitForSpeechCmd(m.speech.Lines())
	case SchedulerEventMsg:
		return m.handleSchedulerEvent(typed.Event)
	case PlansRefreshedMsg:
		m.Plans = typed.Plans
		if m.Cursor >= len(m.Plans) {
			m.Cursor = len(m.Plans) - 1
		}
		if m.Cursor < 0 {
			m.Cursor = 0
		}
		return m, nil
	case HistoryLoadedMsg:
		m.History = typed.Days
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: "出错了：" + typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Listening {
		switch msg.String() {
		case "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		case "esc":
			m.machine.Cancel()
			m.stopListening()
			m.Status = StatusBar{Text: "对话已取消"}
			return m, nil
		case "enter":
			return m.submitUtterance()
		default:
			var cmd tea.Cmd
			m.micInput, cmd = m.micInput.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Add:
		m.machine.BeginAdd()
		m.startListening()
		return m, m.listenSpinner.Tick
	case m.Keys.Modify:
		selected := m.SelectedPlan()
		if selected == nil {
			m.Status = StatusBar{Text: "先用 j/k 选中一个计划"}
			return m, nil
		}
		if err := m.machine.SelectPlan(context.Background(), selected.ID); err != nil {
			m.Status = StatusBar{Text: "出错了：" + err.Error(), IsError: true}
			return m, nil
		}
		m.startListening()
		return m, m.listenSpinner.Tick
	case "j", "down":
		if m.Cursor < len(m.Plans)-1 {
			m.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case m.Keys.Today:
		m.CurrentView = ViewToday
		return m, refreshPlansCmd(m.store, m.clock)
	case m.Keys.History:
		m.CurrentView = ViewHistory
		return m, loadHistoryCmd(m.store, m.clock)
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	}
	return m, nil
}

func (m Model) submitUtterance() (tea.Model, tea.Cmd) {
	text := m.micInput.Value()
	m.micInput.SetValue("")
	if text == "" {
		return m, nil
	}
	if err := m.machine.Handle(context.Background(), text); err != nil {
		m.Status = StatusBar{Text: "出错了：" + err.Error(), IsError: true}
	}
	if m.machine.State() == dialog.StateIdle {
		m.stopListening()
	}
	return m, refreshPlansCmd(m.store, m.clock)
}

func (m *Model) handleSchedulerEvent(ev scheduler.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{
		waitForSchedulerCmd(m.engine.C()),
		refreshPlansCmd(m.store, m.clock),
	}
	switch ev.Kind {
	case scheduler.EventStartReminder:
		m.Status = StatusBar{Text: fmt.Sprintf("提醒：「%s」快开始了", ev.TaskName)}
	case scheduler.EventCompletionDue:
		if err := m.machine.BeginCompletionCheck(context.Background(), ev.PlanID); err != nil {
			m.Status = StatusBar{Text: "出错了：" + err.Error(), IsError: true}
			break
		}
		if m.machine.State() == dialog.StateConfirmingCompletion {
			m.startListening()
			cmds = append(cmds, m.listenSpinner.Tick)
		}
	}
	return *m, tea.Batch(cmds...)
}

func (m *Model) startListening() {
	m.Listening = true
	m.micInput.Focus()
}

func (m *Model) stopListening() {
	m.Listening = false
	m.micInput.Blur()
	m.micInput.SetValue("")
}

func (m Model) View() string {
	var left string
	switch m.CurrentView {
	case ViewHistory:
		left = m.renderHistoryPanel()
	default:
		left = m.renderTodayPanel()
	}

	right := views.RenderDialogPanel(views.DialogPanelData{
		State:     stateLabel(m.machine.State()),
		Listening: m.Listening,
		MicView:   m.micInput.View(),
		Spinner:   m.listenSpinner.View(),
	}) + "\n\n" + m.logViewport.View()
	if m.HelpVisible {
		right += "\n\n" + m.renderHelpView()
	}

	status := m.Status.Text
	banner := ""
	if len(m.SpokenLog) > 0 {
		banner = m.SpokenLog[len(m.SpokenLog)-1].Text
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("planvoice | 今天 %d 个计划", len(m.Plans)),
		LeftPane:   left,
		RightPane:  right,
		StatusLine: status,
		Banner:     banner,
		Footer: fmt.Sprintf("%s 添加 | %s 修改 | j/k 移动 | %s 今天 | %s 历史 | %s 帮助 | %s 退出",
			m.Keys.Add, m.Keys.Modify, m.Keys.Today, m.Keys.History, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) renderTodayPanel() string {
	items := make([]views.PlanItemData, 0, len(m.Plans))
	for i, plan := range m.Plans {
		items = append(items, views.PlanItemData{
			TaskName:  plan.TaskName,
			Window:    parse.FormatTimeRange(plan.StartTime, plan.EndTime),
			Repeat:    plan.Repeat.Label(),
			Completed: plan.Completed,
			Selected:  i == m.Cursor,
		})
	}
	return views.RenderTodayPanel(views.TodayPanelData{Items: items})
}

func (m Model) renderHistoryPanel() string {
	days := make([]views.HistoryDayData, 0, len(m.History))
	for _, day := range m.History {
		data := views.HistoryDayData{
			Date:        day.Stat.Date,
			Total:       day.Stat.Total,
			Completed:   day.Stat.Completed,
			RatePercent: int(day.Stat.CompletionRate() * 100),
		}
		for _, rec := range day.Records {
			entry := views.HistoryEntryData{
				TaskName:  rec.TaskName,
				Window:    parse.FormatTimeRange(rec.StartTime, rec.EndTime),
				Completed: rec.Completed,
			}
			if rec.ActualCompletedAt != nil {
				entry.CompletedAt = parse.FormatTime(*rec.ActualCompletedAt)
			}
			data.Entries = append(data.Entries, entry)
		}
		days = append(days, data)
	}
	return views.RenderHistoryPanel(days)
}

func (m Model) renderSpeechLog() string {
	lines := make([]views.SpeechLineData, 0, len(m.SpokenLog))
	for _, line := range m.SpokenLog {
		lines = append(lines, views.SpeechLineData{
			At:   line.At.Format("15:04:05"),
			Text: line.Text,
		})
	}
	return views.RenderSpeechLog(lines)
}

func stateLabel(s dialog.State) string {
	switch s {
	case dialog.StateAddingPlan:
		return "等你说计划"
	case dialog.StateConfirmingPeriod:
		return "确认上午/下午"
	case dialog.StateAskingRepeat:
		return "等你选重复方式"
	case dialog.StateModifyingPlan:
		return "修改还是删除"
	case dialog.StateConfirmingDelete:
		return "确认删除"
	case dialog.StateConfirmingCompletion:
		return "确认完成情况"
	case dialog.StateModifyingName:
		return "等你说新名称"
	case dialog.StateModifyingTime:
		return "等你说新时间"
	default:
		return "空闲"
	}
}
