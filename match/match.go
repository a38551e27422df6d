// Package match canonicalizes field labels and profile keys and decides
// whether two of them name the same concept.
//
// Both sides are reduced to lowercase ASCII letters before comparison.
// Two normalized strings match when one contains the other or when their
// Levenshtein distance is at most MaxDistance:
//
//	match.Match(match.Normalize("E-mail address"), match.Normalize("email")) // true
//	match.Match("adress", "address")                                         // true, distance 1
//	match.Match("fname", "firstname")                                        // false, distance 4
package match

import "strings"

// MaxDistance is the largest edit distance still accepted as a typo.
const MaxDistance = 2

// Normalize lowercases s and drops every character outside a-z.
// It is total and idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Match reports whether the normalized label l and normalized key k denote
// the same concept. An empty side never matches: containment of "" is
// vacuous and would pair every field with every key.
func Match(l, k string) bool {
	if l == "" || k == "" {
		return false
	}
	if strings.Contains(l, k) || strings.Contains(k, l) {
		return true
	}
	return Distance(l, k) <= MaxDistance
}

// Distance is the classic Levenshtein distance between a and b: single-rune
// insertion, deletion and substitution, each of unit cost.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// FirstKey returns the index of the first key, in the given order, whose
// normalized form matches the normalized label. Later keys are not
// considered even when they would match more closely. It returns -1 when
// nothing matches.
func FirstKey(label string, keys []string) int {
	l := Normalize(label)
	if l == "" {
		return -1
	}
	for i, k := range keys {
		if Match(l, Normalize(k)) {
			return i
		}
	}
	return -1
}
