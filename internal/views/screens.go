package views

import (
	"fmt"
	"strings"
)

type PlanItemData struct {
	TaskName  string
	Window    string
	Repeat    string
	Completed bool
	Selected  bool
}

type TodayPanelData struct {
	Items []PlanItemData
}

type HistoryEntryData struct {
	TaskName    string
	Window      string
	Completed   bool
	CompletedAt string
}

type HistoryDayData struct {
	Date        string
	Total       int
	Completed   int
	RatePercent int
	Entries     []HistoryEntryData
}

type SpeechLineData struct {
	At   string
	Text string
}

type DialogPanelData struct {
	State     string
	Listening bool
	MicView   string
	Spinner   string
}

func RenderTodayPanel(data TodayPanelData) string {
	var b strings.Builder
	b.WriteString("今日计划:\n")
	if len(data.Items) == 0 {
		b.WriteString("  (还没有计划，按 a 用语音添加)")
		return b.String()
	}
	for _, item := range data.Items {
		cursor := " "
		if item.Selected {
			cursor = ">"
		}
		mark := "[ ]"
		if item.Completed {
			mark = "[✓]"
		}
		b.WriteString(fmt.Sprintf("%s %s %s %s（%s）\n", cursor, mark, item.Window, item.TaskName, item.Repeat))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderHistoryPanel(days []HistoryDayData) string {
	var b strings.Builder
	b.WriteString("最近7天:\n")
	if len(days) == 0 {
		b.WriteString("  (暂无记录)")
		return b.String()
	}
	for _, day := range days {
		b.WriteString(fmt.Sprintf("\n%s  完成 %d/%d（%d%%）\n", day.Date, day.Completed, day.Total, day.RatePercent))
		for _, entry := range day.Entries {
			mark := "✗"
			if entry.Completed {
				mark = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s", mark, entry.Window, entry.TaskName))
			if entry.CompletedAt != "" {
				b.WriteString(fmt.Sprintf("（%s 完成）", entry.CompletedAt))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderDialogPanel(data DialogPanelData) string {
	var b strings.Builder
	b.WriteString("对话:\n")
	b.WriteString(fmt.Sprintf("状态: %s\n", data.State))
	if data.Listening {
		b.WriteString(fmt.Sprintf("%s 正在听...\n", data.Spinner))
		b.WriteString(data.MicView)
	} else {
		b.WriteString("(按 a 添加计划，m 修改选中的计划)")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderSpeechLog(lines []SpeechLineData) string {
	if len(lines) == 0 {
		return "语音播报:\n  (静悄悄的)"
	}
	var b strings.Builder
	b.WriteString("语音播报:\n")
	for _, line := range lines {
		b.WriteString(fmt.Sprintf("%s  %s\n", line.At, line.Text))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

const helpMarkdown = `# planvoice

语音驱动的每日学习计划。

## 按键

- **a** 开始添加计划（说出：事项名称，开始时间到结束时间）
- **enter** 把输入框里的话"说"出去
- **esc** 取消当前对话
- **j / k** 在计划列表里移动
- **m** 修改或删除选中的计划
- **t / h** 切换今天 / 历史
- **?** 开关帮助
- **q** 退出

## 示例

说 "口算，下午4点45到下午5点"，然后回答重复方式
（当天、学习日或每天）。
`

func RenderHelpPanel(helpView string) string {
	return RenderMarkdown(helpMarkdown) + "\n" + helpView
}
