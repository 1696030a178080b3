package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed locales/*.json
var localeFS embed.FS

var supported = []language.Tag{language.Vietnamese, language.English}

// Translator resolves UI strings for the languages shipped in locales/.
type Translator struct {
	bundle      *i18n.Bundle
	defaultLang language.Tag
	matcher     language.Matcher
}

func New(defaultLang string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range []string{"locales/en.json", "locales/vi.json"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("could not load %s: %w", file, err)
		}
	}

	def := language.Vietnamese
	if defaultLang == "en" {
		def = language.English
	}

	// the default goes first so unmatched requests fall back to it
	tags := []language.Tag{def}
	for _, t := range supported {
		if t != def {
			tags = append(tags, t)
		}
	}

	return &Translator{
		bundle:      bundle,
		defaultLang: def,
		matcher:     language.NewMatcher(tags),
	}, nil
}

// Match picks the supported language ("vi" or "en") for an Accept-Language
// header value.
func (t *Translator) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return baseOf(t.defaultLang)
	}
	tag, _ := language.MatchStrings(t.matcher, acceptLanguage)
	return baseOf(tag)
}

// Localizer returns a localizer for lang, falling back to the default language.
func (t *Translator) Localizer(lang string) *Localizer {
	return &Localizer{l: i18n.NewLocalizer(t.bundle, lang, t.defaultLang.String())}
}

type Localizer struct {
	l *i18n.Localizer
}

// Text returns the message for id, or id itself when it is missing.
func (l *Localizer) Text(id string) string {
	text, err := l.l.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || text == "" {
		return id
	}
	return text
}

// LanguageName returns the English name of a language code, e.g. "Vietnamese".
func LanguageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "English"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return "English"
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
