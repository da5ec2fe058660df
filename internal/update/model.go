// Package update holds the bubbletea model for the voice console:
// typed text stands in for recognized speech, and the spoken-output log
// stands in for synthesis.
package update

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"planvoice/internal/clock"
	"planvoice/internal/dialog"
	"planvoice/internal/model"
	"planvoice/internal/scheduler"
	"planvoice/internal/storage"
	"planvoice/internal/voice"
)

type View string

const (
	ViewToday   View = "today"
	ViewHistory View = "history"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Add     string
	Modify  string
	Today   string
	History string
	Help    string
	Quit    string
}

type HistoryDay struct {
	Stat    storage.DayStat
	Records []model.PlanRecord
}

type Model struct {
	CurrentView View
	Plans       []model.Plan
	Cursor      int
	History     []HistoryDay
	SpokenLog   []voice.Line
	Status      StatusBar
	HelpVisible bool
	Listening   bool
	Quitting    bool
	LastError   error
	Keys        GlobalKeyMap

	store   storage.Store
	clock   clock.Clock
	machine *dialog.Machine
	engine  *scheduler.Engine
	speech  *voice.Queue

	micInput      textinput.Model
	logViewport   viewport.Model
	helpModel     help.Model
	listenSpinner spinner.Model
}

type SpeechLineMsg struct {
	Line voice.Line
}

type SchedulerEventMsg struct {
	Event scheduler.Event
}

type PlansRefreshedMsg struct {
	Plans []model.Plan
}

type HistoryLoadedMsg struct {
	Days []HistoryDay
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type AppErrorMsg struct {
	Err error
}

func NewModel(store storage.Store, clk clock.Clock, machine *dialog.Machine, engine *scheduler.Engine, speech *voice.Queue) Model {
	mic := textinput.New()
	mic.Placeholder = "对我说..."
	mic.CharLimit = 120

	vp := viewport.New(48, 8)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		CurrentView: ViewToday,
		Keys: GlobalKeyMap{
			Add:     "a",
			Modify:  "m",
			Today:   "t",
			History: "h",
			Help:    "?",
			Quit:    "q",
		},
		store:         store,
		clock:         clk,
		machine:       machine,
		engine:        engine,
		speech:        speech,
		micInput:      mic,
		logViewport:   vp,
		helpModel:     help.New(),
		listenSpinner: sp,
	}
	m.logViewport.SetContent(m.renderSpeechLog())
	return m
}

// SelectedPlan returns the plan under the cursor, or nil.
func (m Model) SelectedPlan() *model.Plan {
	if m.Cursor < 0 || m.Cursor >= len(m.Plans) {
		return nil
	}
	return &m.Plans[m.Cursor]
}

func (m *Model) appendSpoken(line voice.Line) {
	m.SpokenLog = append(m.SpokenLog, line)
	if len(m.SpokenLog) > 50 {
		m.SpokenLog = m.SpokenLog[len(m.SpokenLog)-50:]
	}
	m.logViewport.SetContent(m.renderSpeechLog())
	m.logViewport.GotoBottom()
}
