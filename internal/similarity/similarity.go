// Package similarity provides the text normalization and scoring primitives shared
// by the matcher, the recurring detector and the account reconciler.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Normalize lower-cases s, turns punctuation into spaces and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens splits s into lower-case alphanumeric tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MerchantKey normalizes a merchant or description into a grouping key. Tokens made
// only of digits (store numbers, reference codes, dates) are dropped.
func MerchantKey(s string) string {
	tokens := Tokens(s)
	kept := tokens[:0]
	for _, t := range tokens {
		if isDigits(t) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// TokenOverlap returns the Dice coefficient of the token sets of a and b.
func TokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

// EditRatio returns 1 - levenshtein(a, b) / max(len(a), len(b)) over the normalized
// strings. Two empty strings score 0.
func EditRatio(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(longest)
}

// Score is the text similarity of a and b in [0,1]: the better of token overlap and
// edit ratio.
func Score(a, b string) float64 {
	return max(TokenOverlap(a, b), EditRatio(a, b))
}

// Contains reports whether needle occurs in haystack, ignoring case.
func Contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Equal reports whether a and b are equal ignoring case and surrounding whitespace.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
