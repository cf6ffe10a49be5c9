package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// BaseLanguage is the fallback for phrase lookups and unknown requests.
const BaseLanguage = "fr"

// SupportedLanguages lists narrative languages, base first.
var SupportedLanguages = []string{"fr", "nl", "de", "en"}

var languageMatcher = language.NewMatcher([]language.Tag{
	language.French,
	language.Dutch,
	language.German,
	language.English,
})

// NormalizeLanguage returns the supported code for a tag such as "nl-BE".
func NormalizeLanguage(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	for _, lang := range SupportedLanguages {
		if base.String() == lang {
			return lang, true
		}
	}
	return "", false
}

// MatchLanguage picks the best supported language for an Accept-Language
// header value, or fallback when nothing matches.
func MatchLanguage(acceptLanguage, fallback string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return SupportedLanguages[idx]
}
