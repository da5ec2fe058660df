package parse

import "strings"

// Classifiers are total: every utterance maps to exactly one category,
// with the unknown category as the fallback. Affirmative synonyms are
// checked before negative ones, so mixed utterances resolve the way the
// left-to-right synonym scan always has.

type Repeat string

const (
	RepeatChoiceOnce    Repeat = "once"
	RepeatChoiceWeekday Repeat = "weekday"
	RepeatChoiceDaily   Repeat = "daily"
	RepeatChoiceUnknown Repeat = "unknown"
)

func ClassifyRepeat(text string) Repeat {
	switch {
	case containsAny(text, "当天", "今天"):
		return RepeatChoiceOnce
	case containsAny(text, "学习日", "工作日"):
		return RepeatChoiceWeekday
	case containsAny(text, "每天", "天天"):
		return RepeatChoiceDaily
	default:
		return RepeatChoiceUnknown
	}
}

type Confirmation string

const (
	ConfirmYes     Confirmation = "yes"
	ConfirmNo      Confirmation = "no"
	ConfirmUnknown Confirmation = "unknown"
)

func ClassifyConfirmation(text string) Confirmation {
	switch {
	case containsAny(text, "是", "对", "确认", "好", "嗯"):
		return ConfirmYes
	case containsAny(text, "不", "否", "取消"):
		return ConfirmNo
	default:
		return ConfirmUnknown
	}
}

type PlanAction string

const (
	ActionModify    PlanAction = "modify"
	ActionDelete    PlanAction = "delete"
	ActionNameField PlanAction = "name_field"
	ActionTimeField PlanAction = "time_field"
	ActionUnknown   PlanAction = "unknown"
)

func ClassifyModifyOrDelete(text string) PlanAction {
	switch {
	case strings.Contains(text, "修改"):
		return ActionModify
	case strings.Contains(text, "删除"):
		return ActionDelete
	case containsAny(text, "事项", "名称"):
		return ActionNameField
	case strings.Contains(text, "时间"):
		return ActionTimeField
	default:
		return ActionUnknown
	}
}

type Period string

const (
	PeriodMorning   Period = "上午"
	PeriodAfternoon Period = "下午"
	PeriodUnknown   Period = ""
)

func ClassifyPeriod(text string) Period {
	switch {
	case containsAny(text, "上午", "早上"):
		return PeriodMorning
	case containsAny(text, "下午", "晚上"):
		return PeriodAfternoon
	default:
		return PeriodUnknown
	}
}

func containsAny(text string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
