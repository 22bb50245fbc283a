package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenPattern matches word tokens of two or more characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

var lowerCaser = cases.Lower(language.Und)

// Lower lowercases text using Unicode casing rules.
func Lower(text string) string {
	return lowerCaser.String(text)
}

// Tokenize lowercases text and returns its word tokens in order.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(Lower(text), -1)
}

// FoldAccents removes combining marks after canonical decomposition, so "canción"
// becomes "cancion". Characters without a decomposition are kept as is.
func FoldAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// RemoveChars deletes every rune of set from text.
func RemoveChars(text, set string) string {
	if set == "" {
		return text
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(set, r) {
			return -1
		}
		return r
	}, text)
}
