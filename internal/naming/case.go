package naming

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// title upper-cases the first rune of word. Casers keep state, so each call gets its own.
func title(word string) string {
	return cases.Title(language.Und, cases.NoLower).String(word)
}

// isSeparator reports the runes that split words in declared names.
func isSeparator(r rune) bool {
	return r == '-' || r == '_' || r == '.' || r == '/' || unicode.IsSpace(r)
}

// ToUpperCamelCase joins the words of in, capitalizing the first rune of each.
// The rest of every word is kept as written.
func ToUpperCamelCase(in string) string {
	words := strings.FieldsFunc(in, isSeparator)
	var sb strings.Builder
	for _, word := range words {
		sb.WriteString(title(word))
	}
	return sb.String()
}

// ToLowerCamelCase converts a name to lowerCamelCase. A leading run of capitals is
// lowered as a whole except for a capital that starts the next word, so "ID"
// becomes "id" and "IDValue" becomes "idValue".
func ToLowerCamelCase(in string) string {
	runes := []rune(ToUpperCamelCase(in))
	for i := 0; i < len(runes) && unicode.IsUpper(runes[i]); i++ {
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// EnumCaseName turns an enum literal into an identifier. Any rune that is not a
// letter or digit separates words.
func EnumCaseName(literal string) string {
	words := strings.FieldsFunc(literal, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var sb strings.Builder
	for _, word := range words {
		sb.WriteString(title(word))
	}
	name := sb.String()
	if name == "" {
		return "Empty"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		return "Value" + name
	}
	return name
}

// EnumCaseNames names every literal of one enum. A name already taken by an
// earlier literal gets the first free numeric suffix, so "a-b" and "a_b" become
// AB and AB2.
func EnumCaseNames(literals []string) []string {
	names := make([]string, len(literals))
	taken := make(map[string]bool, len(literals))
	for i, literal := range literals {
		name := EnumCaseName(literal)
		for n := 2; taken[name]; n++ {
			name = EnumCaseName(literal) + strconv.Itoa(n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
