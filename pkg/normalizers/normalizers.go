// Package normalizers converts raw extracted fields into comparable
// canonical forms: decimal amounts, digit-only documents, accent-stripped
// upper-cased name tokens.
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("digits_only", DigitsOnly)
	Register("remove_punctuation", RemovePunctuation)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("strip_diacritics", StripDiacritics)
	Register("nname", Name)
	Register("ndocument", Document)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RemovePunctuation removes all punctuation and symbol characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// CollapseWhitespace collapses runs of whitespace into single spaces and
// trims the ends
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripDiacritics removes combining marks, so "JOÃO" becomes "JOAO"
func StripDiacritics(s string) string {
	// The chain is stateful; build a fresh one per call so concurrent
	// scoring goroutines don't share it.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Name canonicalizes a payer name or statement description for matching:
// upper-case, strip diacritics, strip punctuation, collapse whitespace.
// Empty input yields an empty string.
func Name(s string) string {
	s = strings.ToUpper(s)
	s = StripDiacritics(s)
	s = RemovePunctuation(s)
	return CollapseWhitespace(s)
}

// Document strips everything but digits from a tax-ID. An empty result is
// treated as "no document" by the rules; two empty documents never match.
func Document(s string) string {
	return DigitsOnly(s)
}
