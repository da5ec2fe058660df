// Package parse turns recognized speech into structured plan data and
// discrete command intents. Parsing never fails hard: malformed input is
// reported inside a Result so the dialog can re-prompt.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"planvoice/internal/clock"
)

const (
	periodToken = `(上午|下午|早上|晚上)?`
	clockToken  = `(\d{1,2})点(\d{1,2}分?|半)?`
)

var (
	rangePattern       = regexp.MustCompile(`(.+)[，,]\s*` + periodToken + clockToken + `到` + periodToken + clockToken)
	editStartPattern   = regexp.MustCompile(`开始时间` + periodToken + clockToken)
	editEndPattern     = regexp.MustCompile(`结束时间` + periodToken + clockToken)
	clockPhrasePattern = regexp.MustCompile(periodToken + `\d{1,2}点\d{0,2}分?`)
)

var periodMarkers = []string{"上午", "下午", "早上", "晚上"}

// Result is the outcome of parsing one utterance. When NeedsPeriod is set
// the utterance was structurally fine but missing an AM/PM marker; the raw
// text is preserved so it can be re-parsed after the user answers.
type Result struct {
	TaskName    string
	StartTime   time.Time
	EndTime     time.Time
	Valid       bool
	Error       string
	NeedsPeriod bool
	Raw         string
}

// Parser anchors parsed times of day onto the current date.
type Parser struct {
	clock clock.Clock
}

func NewParser(c clock.Clock) *Parser {
	return &Parser{clock: c}
}

// ParsePlan parses a new-plan utterance of the shape
// 事项名称，开始时间到结束时间 (for example 口算，下午4点45到下午5点).
func (p *Parser) ParsePlan(utterance string) Result {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(utterance))
	if m == nil {
		return Result{Error: "格式不正确，请说：事项名称，开始时间到结束时间"}
	}

	taskName := strings.TrimSpace(m[1])
	startPeriod, startHour, startMinute := m[2], m[3], m[4]
	endPeriod, endHour, endMinute := m[5], m[6], m[7]

	if taskName == "" {
		return Result{Error: "无法识别完整的计划信息，请按格式说：事项名称，开始时间到结束时间"}
	}
	if startPeriod == "" || endPeriod == "" {
		return Result{
			TaskName:    taskName,
			NeedsPeriod: true,
			Raw:         utterance,
			Error:       "请确认是上午还是下午？",
		}
	}

	start := p.timeToday(parseHour(startHour), parseMinute(startMinute), startPeriod)
	end := p.timeToday(parseHour(endHour), parseMinute(endMinute), endPeriod)
	if !end.After(start) {
		return Result{
			TaskName: taskName,
			Error:    "结束时间不能早于开始时间哦，请重新说一遍",
		}
	}

	return Result{TaskName: taskName, StartTime: start, EndTime: end, Valid: true}
}

// ParseTimeEdit parses a time-modification utterance of the shape
// 开始时间下午4点，结束时间下午5点. Both clauses are required, in any order.
func (p *Parser) ParseTimeEdit(utterance string) Result {
	sm := editStartPattern.FindStringSubmatch(utterance)
	em := editEndPattern.FindStringSubmatch(utterance)
	if sm == nil || em == nil {
		return Result{Error: "请按格式说：开始时间X点X分，结束时间X点X分"}
	}

	if sm[1] == "" || em[1] == "" {
		return Result{
			NeedsPeriod: true,
			Raw:         utterance,
			Error:       "请确认是上午还是下午？",
		}
	}

	start := p.timeToday(parseHour(sm[2]), parseMinute(sm[3]), sm[1])
	end := p.timeToday(parseHour(em[2]), parseMinute(em[3]), em[1])
	if !end.After(start) {
		return Result{Error: "结束时间不能早于开始时间哦，请重新说一遍"}
	}

	return Result{StartTime: start, EndTime: end, Valid: true}
}

// ResolvePeriod rewrites a period-ambiguous utterance by prefixing every
// bare clock token with the confirmed period, ready for re-parsing.
// Clock tokens that already carry a marker are left alone.
func ResolvePeriod(raw, period string) string {
	return clockPhrasePattern.ReplaceAllStringFunc(raw, func(phrase string) string {
		for _, marker := range periodMarkers {
			if strings.HasPrefix(phrase, marker) {
				return phrase
			}
		}
		return period + phrase
	})
}

func parseHour(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseMinute(s string) int {
	switch {
	case s == "":
		return 0
	case s == "半":
		return 30
	case strings.HasSuffix(s, "分"):
		v, _ := strconv.Atoi(strings.TrimSuffix(s, "分"))
		return v
	default:
		v, _ := strconv.Atoi(s)
		return v
	}
}

// timeToday anchors an hour/minute with a 上午/下午 marker onto today's
// date. Morning 12 means midnight; afternoon 12 stays noon; other
// afternoon hours shift by twelve.
func (p *Parser) timeToday(hour, minute int, period string) time.Time {
	hour24 := hour
	switch period {
	case "上午", "早上":
		if hour == 12 {
			hour24 = 0
		}
	case "下午", "晚上":
		if hour != 12 {
			hour24 = hour + 12
		}
	}
	now := p.clock.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, hour24, minute, 0, 0, now.Location())
}

// FormatTime renders a time of day as HH:MM.
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatTimeRange renders a window as HH:MM-HH:MM.
func FormatTimeRange(start, end time.Time) string {
	return FormatTime(start) + "-" + FormatTime(end)
}

// TimeDescription renders a time of day the way it is spoken, for example
// 下午4点45分.
func TimeDescription(t time.Time) string {
	hour, minute := t.Hour(), t.Minute()
	period := "上午"
	if hour >= 12 {
		period = "下午"
	}
	hour12 := hour
	switch {
	case hour == 0:
		hour12 = 12
	case hour > 12:
		hour12 = hour - 12
	}
	if minute == 0 {
		return fmt.Sprintf("%s%d点", period, hour12)
	}
	return fmt.Sprintf("%s%d点%d分", period, hour12, minute)
}
