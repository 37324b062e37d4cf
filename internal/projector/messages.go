package projector

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// unknownWord describes every spelling finding.
const unknownWord = "Unknown word."

func init() {
	translations := map[language.Tag]string{
		language.French:  "Mot inconnu.",
		language.German:  "Unbekanntes Wort.",
		language.Spanish: "Palabra desconocida.",
		language.Italian: "Parola sconosciuta.",
	}
	for tag, text := range translations {
		_ = message.SetString(tag, unknownWord, text)
	}
}

// ParseLanguage parses a locale such as "fr" or "fr_CA". An empty or
// unknown locale yields English.
func ParseLanguage(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
