package parse

import "testing"

func TestClassifyRepeat(t *testing.T) {
	cases := []struct {
		text string
		want Repeat
	}{
		{"就今天", RepeatChoiceOnce},
		{"当天", RepeatChoiceOnce},
		{"学习日", RepeatChoiceWeekday},
		{"工作日吧", RepeatChoiceWeekday},
		{"每天", RepeatChoiceDaily},
		{"天天都要", RepeatChoiceDaily},
		{"随便", RepeatChoiceUnknown},
		{"", RepeatChoiceUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyRepeat(tc.text); got != tc.want {
			t.Fatalf("ClassifyRepeat(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyConfirmation(t *testing.T) {
	cases := []struct {
		text string
		want Confirmation
	}{
		{"是的", ConfirmYes},
		{"对", ConfirmYes},
		{"确认", ConfirmYes},
		{"好", ConfirmYes},
		{"嗯", ConfirmYes},
		{"不要", ConfirmNo},
		{"取消", ConfirmNo},
		{"否", ConfirmNo},
		{"再想想", ConfirmUnknown},
		{"", ConfirmUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyConfirmation(tc.text); got != tc.want {
			t.Fatalf("ClassifyConfirmation(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyConfirmationAffirmativeWinsCollisions(t *testing.T) {
	// Contains both an affirmative and a negative token; the affirmative
	// scan runs first.
	if got := ClassifyConfirmation("对，不改了"); got != ConfirmYes {
		t.Fatalf("mixed utterance classified %s, want yes", got)
	}
}

func TestClassifyModifyOrDelete(t *testing.T) {
	cases := []struct {
		text string
		want PlanAction
	}{
		{"修改", ActionModify},
		{"修改时间", ActionModify},
		{"删除", ActionDelete},
		{"改事项名称", ActionNameField},
		{"名称", ActionNameField},
		{"时间", ActionTimeField},
		{"嗯哼", ActionUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyModifyOrDelete(tc.text); got != tc.want {
			t.Fatalf("ClassifyModifyOrDelete(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyPeriod(t *testing.T) {
	cases := []struct {
		text string
		want Period
	}{
		{"上午", PeriodMorning},
		{"早上的", PeriodMorning},
		{"下午", PeriodAfternoon},
		{"晚上", PeriodAfternoon},
		{"中午", PeriodUnknown},
		{"", PeriodUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyPeriod(tc.text); got != tc.want {
			t.Fatalf("ClassifyPeriod(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
