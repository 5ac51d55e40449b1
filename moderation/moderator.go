// Package moderation masks censored words in message content before it
// is persisted or delivered.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskRune rune
}

// textIndex carries the normalized runes of an input alongside the
// position each one came from in the original string.
type textIndex struct {
	normalized []rune
	origin     []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// word list.
func NewModerator(censoredWords []string, maskRune rune) (Moderator, error) {
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = normalize([]rune(word)).normalized
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskRune: maskRune}, nil
}

// Censor replaces every matched pattern with the mask rune while
// preserving the spacing and punctuation of the original text. Matching
// is case-insensitive and sees through common leet substitutions.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	index := normalize(origRunes)
	if len(index.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(index.normalized, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(index.origin) {
			continue
		}
		for i := index.origin[start]; i <= index.origin[end-1]; i++ {
			origRunes[i] = m.maskRune
		}
	}
	return string(origRunes)
}

// normalize lowercases, undoes leet substitutions, and strips noise
// runes, tracking where each surviving rune sat in the input.
func normalize(input []rune) textIndex {
	index := textIndex{
		normalized: make([]rune, 0, len(input)),
		origin:     make([]int, 0, len(input)),
	}
	for i, r := range input {
		clean := unleet(r)
		if isNoise(clean) {
			continue
		}
		index.normalized = append(index.normalized, unicode.ToLower(clean))
		index.origin = append(index.origin, i)
	}
	return index
}

// unleet maps common leet speak characters back to their standard
// alphabet counterparts.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during pattern matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
