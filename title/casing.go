package title

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gmfennema/tableau-power-point-stylizer/config"
)

// Words kept lower case by smart casing unless they open or close the title.
var minorWords = map[string]bool{
	"and": true, "or": true, "the": true, "a": true, "an": true,
	"in": true, "on": true, "for": true, "of": true, "at": true,
	"to": true, "vs": true, "via": true, "with": true, "from": true,
}

// ApplyCase recases text according to mode (see the config.Case constants).
// Unknown modes return text unchanged. Smart and camel casing normalize
// whitespace to single spaces.
func ApplyCase(text, mode string) string {
	if text == "" {
		return text
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.CaseSmart:
		words := strings.Fields(text)
		for i, w := range words {
			if i > 0 && i < len(words)-1 && minorWords[strings.ToLower(w)] {
				words[i] = lower(w)
				continue
			}
			words[i] = capitalize(w)
		}
		return strings.Join(words, " ")
	case config.CaseCamel:
		words := strings.Fields(text)
		for i, w := range words {
			words[i] = capitalize(w)
		}
		return strings.Join(words, " ")
	case config.CaseUpper:
		return cases.Upper(language.English).String(text)
	case config.CaseLower:
		return lower(text)
	default:
		return text
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return cases.Upper(language.English).String(string(r)) + lower(w[size:])
}

func lower(s string) string {
	return cases.Lower(language.English).String(s)
}
