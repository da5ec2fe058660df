// Package dialog drives the multi-turn voice conversations: adding a
// plan, modifying or deleting one, and confirming completion. One
// Machine owns one session's state; every flow starts and ends at idle.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"planvoice/internal/clock"
	"planvoice/internal/conflict"
	"planvoice/internal/model"
	"planvoice/internal/parse"
	"planvoice/internal/storage"
	"planvoice/internal/voice"
)

type State string

const (
	StateIdle                 State = "idle"
	StateAddingPlan           State = "adding_plan"
	StateConfirmingPeriod     State = "confirming_period"
	StateAskingRepeat         State = "asking_repeat"
	StateModifyingPlan        State = "modifying_plan"
	StateConfirmingDelete     State = "confirming_delete"
	StateConfirmingCompletion State = "confirming_completion"
	StateModifyingName        State = "modifying_name"
	StateModifyingTime        State = "modifying_time"
)

const (
	msgAddPrompt       = "请说出您的计划，格式：事项名称，开始时间到结束时间"
	msgPeriodPrompt    = "请确认是上午还是下午？"
	msgRepeatPrompt    = "这个计划是当天执行，学习日执行，还是每天执行？"
	msgRepeatRetry     = "没听清，请说：当天、学习日或每天"
	msgActionPrompt    = "要修改还是删除这个计划？"
	msgFieldPrompt     = "要修改事项名称还是时间？"
	msgNamePrompt      = "请说出新的事项名称"
	msgNameRetry       = "没听到名称，请再说一遍新的事项名称"
	msgTimePrompt      = "请说新的时间，格式：开始时间X点X分，结束时间X点X分"
	msgConfirmRetry    = "请回答是或者不是"
	msgCancelled       = "好的，已取消"
	msgDoneEncourage   = "太棒了，继续加油！"
	msgMissedEncourage = "没关系，下次努力！"
	msgAllDone         = "今天的计划都完成啦"
	msgStoreTrouble    = "保存的时候出了点问题，请稍后再试"
	cancelToken        = "取消"
)

// Machine is the voice interaction state machine. It is driven from a
// single goroutine; the only concurrency it creates is the delayed
// next-plan announcement, which never touches dialog state.
type Machine struct {
	store         storage.Store
	checker       *conflict.Checker
	parser        *parse.Parser
	speaker       voice.Speaker
	clock         clock.Clock
	announceDelay time.Duration

	state        State
	pending      parse.Result
	selected     *model.Plan
	periodReturn State
}

func NewMachine(store storage.Store, checker *conflict.Checker, parser *parse.Parser, speaker voice.Speaker, clk clock.Clock, announceDelay time.Duration) *Machine {
	return &Machine{
		store:         store,
		checker:       checker,
		parser:        parser,
		speaker:       speaker,
		clock:         clk,
		announceDelay: announceDelay,
		state:         StateIdle,
	}
}

func (m *Machine) State() State { return m.state }

// Selected returns the plan under modification, or nil.
func (m *Machine) Selected() *model.Plan { return m.selected }

// Cancel clears the whole dialog back to idle. Safe in any state.
func (m *Machine) Cancel() {
	m.reset()
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.pending = parse.Result{}
	m.selected = nil
	m.periodReturn = StateIdle
}

// BeginAdd starts the add-plan dialog.
func (m *Machine) BeginAdd() {
	m.reset()
	m.state = StateAddingPlan
	m.speaker.Speak(msgAddPrompt)
}

// SelectPlan starts the modify/delete dialog for an existing plan.
func (m *Machine) SelectPlan(ctx context.Context, id int64) error {
	plan, err := m.store.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	m.reset()
	m.selected = &plan
	m.state = StateModifyingPlan
	m.speaker.Speak(fmt.Sprintf("已选中「%s」，%s", plan.TaskName, msgActionPrompt))
	return nil
}

// BeginCompletionCheck enters the completion confirmation for a plan,
// normally on a scheduler end-of-plan event.
func (m *Machine) BeginCompletionCheck(ctx context.Context, id int64) error {
	plan, err := m.store.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if plan.Completed {
		return nil
	}
	m.reset()
	m.selected = &plan
	m.state = StateConfirmingCompletion
	m.speaker.Speak(fmt.Sprintf("「%s」的时间到了，完成了吗？", plan.TaskName))
	return nil
}

// Handle feeds one recognized utterance into the current dialog. Store
// failures are returned to the caller and leave the state unchanged so
// the same answer can be retried.
func (m *Machine) Handle(ctx context.Context, utterance string) error {
	text := strings.TrimSpace(utterance)
	if m.state != StateIdle && strings.Contains(text, cancelToken) {
		m.reset()
		m.speaker.Speak(msgCancelled)
		return nil
	}

	switch m.state {
	case StateIdle:
		return nil
	case StateAddingPlan:
		m.handleParse(m.parser.ParsePlan(text), StateAddingPlan)
		return nil
	case StateConfirmingPeriod:
		return m.handlePeriod(ctx, text)
	case StateAskingRepeat:
		return m.handleAskingRepeat(ctx, text)
	case StateModifyingPlan:
		m.handlePlanAction(text)
		return nil
	case StateConfirmingDelete:
		return m.handleDeleteConfirmation(ctx, text)
	case StateConfirmingCompletion:
		return m.handleCompletionConfirmation(ctx, text)
	case StateModifyingName:
		return m.handleRename(ctx, text)
	case StateModifyingTime:
		return m.handleTimeEdit(ctx, m.parser.ParseTimeEdit(text))
	default:
		m.reset()
		return nil
	}
}

// handleParse routes a new-plan parse outcome; origin is the state the
// utterance belongs to, so a period follow-up re-enters the same logic.
func (m *Machine) handleParse(result parse.Result, origin State) {
	switch {
	case result.NeedsPeriod:
		m.pending = result
		m.periodReturn = origin
		m.state = StateConfirmingPeriod
		m.speaker.Speak(msgPeriodPrompt)
	case result.Valid:
		m.pending = result
		m.state = StateAskingRepeat
		m.speaker.Speak(fmt.Sprintf("好的，%s，%s到%s。%s",
			result.TaskName,
			parse.TimeDescription(result.StartTime),
			parse.TimeDescription(result.EndTime),
			msgRepeatPrompt))
	default:
		m.state = origin
		m.speaker.Speak(result.Error)
	}
}

func (m *Machine) handlePeriod(ctx context.Context, text string) error {
	period := parse.ClassifyPeriod(text)
	if period == parse.PeriodUnknown {
		m.speaker.Speak(msgPeriodPrompt)
		return nil
	}
	resolved := parse.ResolvePeriod(m.pending.Raw, string(period))
	origin := m.periodReturn
	m.pending = parse.Result{}
	m.periodReturn = StateIdle
	if origin == StateModifyingTime {
		m.state = StateModifyingTime
		return m.handleTimeEdit(ctx, m.parser.ParseTimeEdit(resolved))
	}
	m.state = StateAddingPlan
	m.handleParse(m.parser.ParsePlan(resolved), StateAddingPlan)
	return nil
}

// handleAskingRepeat serves double duty: with no selected plan it asks
// for the repeat rule of a new plan; with a selection it asks which
// field of the selected plan to modify.
func (m *Machine) handleAskingRepeat(ctx context.Context, text string) error {
	if m.selected != nil {
		switch parse.ClassifyModifyOrDelete(text) {
		case parse.ActionNameField:
			m.state = StateModifyingName
			m.speaker.Speak(msgNamePrompt)
		case parse.ActionTimeField:
			m.state = StateModifyingTime
			m.speaker.Speak(msgTimePrompt)
		default:
			m.speaker.Speak(msgFieldPrompt)
		}
		return nil
	}

	var rule model.RepeatRule
	switch parse.ClassifyRepeat(text) {
	case parse.RepeatChoiceOnce:
		rule = model.RepeatOnce
	case parse.RepeatChoiceWeekday:
		rule = model.RepeatWeekday
	case parse.RepeatChoiceDaily:
		rule = model.RepeatDaily
	default:
		m.speaker.Speak(msgRepeatRetry)
		return nil
	}

	conflicts, err := m.checker.FindConflicts(ctx, m.pending.StartTime, m.pending.EndTime, 0)
	if err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	if len(conflicts) > 0 {
		first := conflicts[0]
		m.reset()
		m.speaker.Speak(fmt.Sprintf("这个时间和「%s」（%s）冲突了，请换个时间再试",
			first.TaskName, parse.FormatTimeRange(first.StartTime, first.EndTime)))
		return nil
	}

	now := m.clock.Now()
	plan := model.Plan{
		TaskName:   m.pending.TaskName,
		StartTime:  m.pending.StartTime,
		EndTime:    m.pending.EndTime,
		CreateDate: now,
		Repeat:     rule,
		Enabled:    true,
	}
	if _, err := m.store.CreatePlan(ctx, plan); err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	name, start, end := m.pending.TaskName, m.pending.StartTime, m.pending.EndTime
	m.reset()
	m.speaker.Speak(fmt.Sprintf("计划添加成功：%s，%s到%s，%s执行",
		name, parse.TimeDescription(start), parse.TimeDescription(end), rule.Label()))
	return nil
}

func (m *Machine) handlePlanAction(text string) {
	switch parse.ClassifyModifyOrDelete(text) {
	case parse.ActionDelete:
		m.state = StateConfirmingDelete
		m.speaker.Speak(fmt.Sprintf("确定要删除「%s」吗？", m.selected.TaskName))
	case parse.ActionModify:
		m.state = StateAskingRepeat
		m.speaker.Speak(msgFieldPrompt)
	case parse.ActionNameField:
		m.state = StateModifyingName
		m.speaker.Speak(msgNamePrompt)
	case parse.ActionTimeField:
		m.state = StateModifyingTime
		m.speaker.Speak(msgTimePrompt)
	default:
		m.speaker.Speak(msgActionPrompt)
	}
}

func (m *Machine) handleDeleteConfirmation(ctx context.Context, text string) error {
	switch parse.ClassifyConfirmation(text) {
	case parse.ConfirmYes:
		name := m.selected.TaskName
		if err := m.store.DeletePlan(ctx, m.selected.ID); err != nil {
			m.speaker.Speak(msgStoreTrouble)
			return err
		}
		m.reset()
		m.speaker.Speak(fmt.Sprintf("已删除「%s」", name))
	case parse.ConfirmNo:
		m.reset()
		m.speaker.Speak(msgCancelled)
	default:
		m.speaker.Speak(msgConfirmRetry)
	}
	return nil
}

func (m *Machine) handleCompletionConfirmation(ctx context.Context, text string) error {
	answer := parse.ClassifyConfirmation(text)
	if answer == parse.ConfirmUnknown {
		m.speaker.Speak(msgConfirmRetry)
		return nil
	}
	completed := answer == parse.ConfirmYes
	if err := m.store.SetCompletion(ctx, m.selected.ID, completed, m.clock.Now()); err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	m.reset()
	if completed {
		m.speaker.Speak(msgDoneEncourage)
	} else {
		m.speaker.Speak(msgMissedEncourage)
	}
	m.announceNextAfterDelay()
	return nil
}

func (m *Machine) handleRename(ctx context.Context, text string) error {
	if text == "" {
		m.speaker.Speak(msgNameRetry)
		return nil
	}
	plan := *m.selected
	plan.TaskName = text
	if err := m.store.UpdatePlan(ctx, plan); err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	m.reset()
	m.speaker.Speak(fmt.Sprintf("已把事项名称改为「%s」", text))
	return nil
}

func (m *Machine) handleTimeEdit(ctx context.Context, result parse.Result) error {
	switch {
	case result.NeedsPeriod:
		m.pending = result
		m.periodReturn = StateModifyingTime
		m.state = StateConfirmingPeriod
		m.speaker.Speak(msgPeriodPrompt)
		return nil
	case !result.Valid:
		m.state = StateModifyingTime
		m.speaker.Speak(result.Error)
		return nil
	}

	conflicts, err := m.checker.FindConflicts(ctx, result.StartTime, result.EndTime, m.selected.ID)
	if err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	if len(conflicts) > 0 {
		first := conflicts[0]
		m.reset()
		m.speaker.Speak(fmt.Sprintf("这个时间和「%s」（%s）冲突了，请换个时间再试",
			first.TaskName, parse.FormatTimeRange(first.StartTime, first.EndTime)))
		return nil
	}

	plan := *m.selected
	plan.StartTime = result.StartTime
	plan.EndTime = result.EndTime
	if err := m.store.UpdatePlan(ctx, plan); err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return err
	}
	m.reset()
	m.speaker.Speak(fmt.Sprintf("已把时间改为%s到%s",
		parse.TimeDescription(result.StartTime), parse.TimeDescription(result.EndTime)))
	return nil
}

// Welcome speaks today's plan count, for process startup.
func (m *Machine) Welcome(ctx context.Context) error {
	plans, err := m.store.ListActiveToday(ctx, m.clock.Now())
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		m.speaker.Speak("欢迎回来！今天还没有计划，说出你的第一个计划吧")
		return nil
	}
	m.speaker.Speak(fmt.Sprintf("欢迎回来！今天有%d个计划，加油！", len(plans)))
	return nil
}

// announceNextAfterDelay speaks the upcoming plan a moment after a
// completion decision. It reads fresh store state and never touches the
// dialog, so running it from a timer goroutine is safe.
func (m *Machine) announceNextAfterDelay() {
	time.AfterFunc(m.announceDelay, func() {
		m.AnnounceNext(context.Background())
	})
}

// AnnounceNext speaks the earliest plan still ahead of now, or wraps up
// the day.
func (m *Machine) AnnounceNext(ctx context.Context) {
	now := m.clock.Now()
	next, err := m.store.NextPlan(ctx, now)
	if errors.Is(err, storage.ErrNotFound) {
		m.speaker.Speak(msgAllDone)
		return
	}
	if err != nil {
		m.speaker.Speak(msgStoreTrouble)
		return
	}
	start, _ := next.WindowOn(now)
	minutes := int(start.Sub(now).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	m.speaker.Speak(fmt.Sprintf("下一个计划是「%s」，%d分钟后开始", next.TaskName, minutes))
}
