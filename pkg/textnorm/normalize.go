// Package textnorm maps user-entered ingredient text to the canonical comparison
// form stored in normalized shadow columns.
package textnorm

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidText is returned when input is not valid UTF-8 and therefore has no
// normalized form.
var ErrInvalidText = errors.New("textnorm: invalid utf-8 text")

// pipeline builds a fresh transformer chain per call; transform.Chain keeps
// internal buffers and must not be shared between goroutines.
func pipeline() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Fold(),
		// Fold maps lowercase Cherokee to uppercase; Lower brings it back down
		cases.Lower(language.Und),
		// folding can reintroduce combining marks (U+0130 -> i + U+0307)
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
}

// maxPasses bounds the fixed-point loop in String.
const maxPasses = 4

// String folds case, strips diacritics and compatibility forms, and collapses
// whitespace runs into single spaces.
//
//	"  Crème  FRAÎCHE " -> "creme fraiche"
func String(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidText
	}
	out, err := pass(s)
	if err != nil {
		return "", err
	}
	// re-run until stable so String(String(s)) == String(s)
	for i := 1; i < maxPasses; i++ {
		next, err := pass(out)
		if err != nil {
			return "", err
		}
		if next == out {
			break
		}
		out = next
	}
	return out, nil
}

func pass(s string) (string, error) {
	out, _, err := transform.String(pipeline(), s)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(out), " "), nil
}

// Normalize is the nullable form of String: nil maps to nil. It panics with
// ErrInvalidText when raw holds invalid UTF-8.
func Normalize(raw *string) *string {
	if raw == nil {
		return nil
	}
	out, err := String(*raw)
	if err != nil {
		panic(err)
	}
	return &out
}
