// Package locale renders countdown and status text per language.
package locale

import (
	"embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	appLog "skyevents/internal/log"
)

// DefaultLanguage is the language of the game's own UI text.
const DefaultLanguage = "zh-Hans"

// Message IDs.
const (
	MsgDurationHoursMinutes   = "duration_hours_minutes"
	MsgDurationMinutesSeconds = "duration_minutes_seconds"
	MsgDurationSeconds        = "duration_seconds"
	MsgUnitDays               = "unit_days"
	MsgUnitHours              = "unit_hours"
	MsgUnitMinutes            = "unit_minutes"
	MsgUnitSeconds            = "unit_seconds"
	MsgStartsIn               = "status_starts_in"
	MsgOngoing                = "status_ongoing"
	MsgCompleted              = "status_completed"
	MsgCalculating            = "status_calculating"
	MsgFutureEvent            = "status_future_event"
	MsgCountdownNone          = "countdown_none"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
	languages  []string

	defaultOnce sync.Once
	defaultLoc  *Localizer
)

// Localizer renders message IDs into text for one language.
type Localizer struct {
	lang string
	loc  *i18n.Localizer
}

// New returns a Localizer for lang. Unknown languages fall back to
// DefaultLanguage through go-i18n's matching.
func New(lang string) *Localizer {
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Localizer{
		lang: lang,
		loc:  i18n.NewLocalizer(loadBundle(), lang, DefaultLanguage),
	}
}

// Default returns the shared DefaultLanguage localizer.
func Default() *Localizer {
	defaultOnce.Do(func() {
		defaultLoc = New(DefaultLanguage)
	})
	return defaultLoc
}

// Languages lists the languages found in the embedded locale files.
func Languages() []string {
	loadBundle()
	return append([]string(nil), languages...)
}

// Lang returns the language requested for this localizer.
func (l *Localizer) Lang() string {
	return l.lang
}

// Text renders the message id with optional template data. A missing
// message renders as the id itself.
func (l *Localizer) Text(id string, data map[string]any) string {
	if l == nil || l.loc == nil {
		return id
	}
	msg, err := l.loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		appLog.Debug("locale: message missing", "id", id, "lang", l.lang, "err", err)
		return id
	}
	return msg
}

func loadBundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(language.SimplifiedChinese)
		b.RegisterUnmarshalFunc("json", json.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			appLog.Error("locale: failed to read embedded locales", err)
			bundle = b
			return
		}

		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
				continue
			}
			lang := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
			if _, err := b.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
				appLog.Error("locale: failed to load message file", err, "file", name)
				continue
			}
			languages = append(languages, lang)
		}
		bundle = b
	})
	return bundle
}
