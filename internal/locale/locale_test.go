package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguages(t *testing.T) {
	langs := Languages()
	assert.ElementsMatch(t, []string{"en", "zh-Hans"}, langs)
}

func TestDefault_RendersChinese(t *testing.T) {
	l := Default()
	assert.Equal(t, DefaultLanguage, l.Lang())
	assert.Equal(t, "正在进行", l.Text(MsgOngoing, nil))
	assert.Equal(t, "1小时30分钟", l.Text(MsgDurationHoursMinutes, map[string]any{"Hours": 1, "Minutes": 30}))
	assert.Equal(t, "2小时后开始", l.Text(MsgStartsIn, map[string]any{"Value": 2, "Unit": l.Text(MsgUnitHours, nil)}))
}

func TestEnglish(t *testing.T) {
	l := New("en")
	assert.Equal(t, "ongoing", l.Text(MsgOngoing, nil))
	assert.Equal(t, "5m 3s", l.Text(MsgDurationMinutesSeconds, map[string]any{"Minutes": 5, "Seconds": 3}))
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	l := New("fr")
	assert.Equal(t, "已完成", l.Text(MsgCompleted, nil))
}

func TestMissingMessageRendersID(t *testing.T) {
	assert.Equal(t, "no_such_message", Default().Text("no_such_message", nil))

	var nilLoc *Localizer
	assert.Equal(t, MsgOngoing, nilLoc.Text(MsgOngoing, nil))
}

// Every message must exist in every shipped language.
func TestLocalesAreComplete(t *testing.T) {
	ids := []string{
		MsgDurationHoursMinutes, MsgDurationMinutesSeconds, MsgDurationSeconds,
		MsgUnitDays, MsgUnitHours, MsgUnitMinutes, MsgUnitSeconds,
		MsgStartsIn, MsgOngoing, MsgCompleted, MsgCalculating, MsgFutureEvent, MsgCountdownNone,
	}
	for _, lang := range Languages() {
		l := New(lang)
		for _, id := range ids {
			assert.NotEqual(t, id, l.Text(id, map[string]any{}), "lang=%s id=%s", lang, id)
		}
	}
}
