package gen

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rules = inflect.NewDefaultRuleset()

	// acronyms are written in upper case in Go identifiers.
	acronyms = map[string]bool{
		"api":  true,
		"html": true,
		"http": true,
		"id":   true,
		"ip":   true,
		"json": true,
		"sql":  true,
		"uri":  true,
		"url":  true,
		"uuid": true,
		"xml":  true,
	}
)

// words splits s on every rune that cannot be part of a Go identifier.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// pascal converts a SQL name to an exported Go identifier.
//
//	pascal("Id_employees") == "IDEmployees"
//	pascal("homeAddress") == "HomeAddress"
func pascal(s string) string {
	return identifier(pascalWords(words(s)))
}

func pascalWords(ws []string) string {
	var (
		b     strings.Builder
		title = cases.Title(language.Und, cases.NoLower)
	)
	for _, w := range ws {
		if acronyms[strings.ToLower(w)] {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		b.WriteString(title.String(w))
	}
	return b.String()
}

// camel converts a SQL name to an unexported Go identifier.
func camel(s string) string {
	ws := words(s)
	if len(ws) == 0 {
		return identifier("")
	}
	first := ws[0]
	if acronyms[strings.ToLower(first)] {
		first = strings.ToLower(first)
	} else {
		r := []rune(first)
		r[0] = unicode.ToLower(r[0])
		first = string(r)
	}
	return identifier(first + pascalWords(ws[1:]))
}

// identifier makes s a valid identifier.
func identifier(s string) string {
	if s == "" || unicode.IsDigit([]rune(s)[0]) {
		return "X" + s
	}
	return s
}

// receiver returns the receiver name of the given type.
//
//	[]T       => t
//	[1]T      => t
//	User      => u
//	UserQuery => uq
func receiver(s string) string {
	if i := strings.LastIndexAny(s, "]*"); i != -1 {
		s = s[i+1:]
	}
	r := []rune(s)
	var b strings.Builder
	for i, c := range r {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToLower(c))
		case unicode.IsUpper(c) && (unicode.IsLower(r[i-1]) || i+1 < len(r) && unicode.IsLower(r[i+1])):
			b.WriteRune(unicode.ToLower(c))
		}
	}
	name := b.String()
	if token.IsKeyword(name) {
		return name[:1]
	}
	return name
}

// plural returns the name of a slice of s. Uncountable names get a
// "Slice" suffix.
func plural(s string) string {
	p := rules.Pluralize(s)
	if p == s {
		p += "Slice"
	}
	return p
}
