package tags

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// FormatEnum turns backend enum values such as "LOW_CARB" into "Low Carb".
// Any value is accepted; nil formats as "".
func FormatEnum(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}

	s = strings.ReplaceAll(lowerCaser.String(s), "_", " ")

	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if unicode.IsSpace(r) {
			atWordStart = true
			b.WriteRune(r)
			continue
		}
		if atWordStart {
			r = unicode.ToTitle(r)
			atWordStart = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatEnums formats every entry of values.
func FormatEnums(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, FormatEnum(v))
	}
	return out
}
