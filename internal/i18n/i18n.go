// Package i18n holds the message tables behind every line spotify-dlp prints: the
// "[spotify-dlp]" status lines, the track listing, the confirmation prompt and the
// login flow. The --language flag selects the table; keys missing from it fall back to
// English, and keys missing everywhere print as themselves.
package i18n

import (
	"fmt"
	"sort"
)

const (
	// DefaultLanguage is the table used for unknown languages and missing keys.
	DefaultLanguage = "en"
	// BerneseGerman is the Swiss dialect spoken in the Canton of Bern.
	BerneseGerman = "ch_be"
)

var catalogs = map[string]map[string]string{
	DefaultLanguage: englishMessages,
	BerneseGerman:   berneseGermanMessages,
}

// Localizer renders message keys in one language.
type Localizer struct {
	messages map[string]string
	fallback map[string]string
}

func NewLocalizer(language string) *Localizer {
	return &Localizer{
		messages: getMessages(language),
		fallback: englishMessages,
	}
}

// T renders key with args applied as fmt verbs.
func (l *Localizer) T(key string, args ...interface{}) string {
	message, ok := l.messages[key]
	if !ok {
		message, ok = l.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// GetSupportedLanguages lists the --language values, default first.
func GetSupportedLanguages() []string {
	languages := make([]string, 0, len(catalogs))
	for language := range catalogs {
		if language != DefaultLanguage {
			languages = append(languages, language)
		}
	}
	sort.Strings(languages)
	return append([]string{DefaultLanguage}, languages...)
}

func IsSupported(language string) bool {
	_, ok := catalogs[language]
	return ok
}

func getMessages(language string) map[string]string {
	if messages, ok := catalogs[language]; ok {
		return messages
	}
	return englishMessages
}
