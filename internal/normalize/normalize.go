// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes restaurant names for fuzzy comparison.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are Brazilian company-form tokens that trail registered
// names ("Restaurante Costa Ltda.") and never distinguish two places.
var legalSuffixes = map[string]bool{
	"ltda":   true,
	"me":     true,
	"eireli": true,
	"epp":    true,
	"sa":     true,
}

// genericTokens are words too common in restaurant names to narrow a
// name lookup on their own.
var genericTokens = map[string]bool{
	"restaurante": true,
	"restaurant":  true,
	"bar":         true,
	"cafe":        true,
	"lanchonete":  true,
	"o":           true,
	"a":           true,
	"os":          true,
	"as":          true,
	"do":          true,
	"da":          true,
	"dos":         true,
	"das":         true,
	"de":          true,
	"e":           true,
	"the":         true,
}

// Name lowercases s, strips diacritics, drops characters outside
// [a-z0-9 ], collapses whitespace, and removes trailing legal-entity
// suffixes as long as one token remains.
func Name(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// Tokens returns the whitespace-separated tokens of Name(s).
func Tokens(s string) []string {
	return strings.Fields(Name(s))
}

// KeyToken returns the first token of Name(s) that is not a generic
// restaurant word, or the first token when all are generic. It returns
// "" for names with no tokens.
func KeyToken(s string) string {
	tokens := Tokens(s)
	for _, t := range tokens {
		if !genericTokens[t] {
			return t
		}
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

// SameName reports whether a and b name the same place: their normalized
// forms are equal, one contains the other as a run of whole tokens, or
// they hold the same set of tokens in a different order. Empty names
// never match.
func SameName(a, b string) bool {
	na, nb := Name(a), Name(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb || containsTokens(na, nb) || containsTokens(nb, na) {
		return true
	}
	return sameTokenSet(strings.Fields(na), strings.Fields(nb))
}

// containsTokens reports whether sub occurs in s on token boundaries, so
// "bar" is found in "bar do ze" but not in "barra grill".
func containsTokens(s, sub string) bool {
	return strings.Contains(" "+s+" ", " "+sub+" ")
}

func sameTokenSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	other := make(map[string]bool, len(b))
	for _, t := range b {
		if !set[t] {
			return false
		}
		other[t] = true
	}
	return len(set) == len(other)
}
