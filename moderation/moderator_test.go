package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name: "Leet speak and internal punctuation",
			// B (index 8) . 4 . d . g . € r (index 17) -> 10 characters
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
		},
		{
			name:     "Nothing to censor",
			input:    "EchoForge is amazing",
			expected: "EchoForge is amazing",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestLoadWordlist(t *testing.T) {
	req := require.New(t)

	wordlist, err := LoadWordlist()

	req.NoError(err)
	req.NotEmpty(wordlist.Words)
	req.Contains(wordlist.Languages, "en")
	req.Contains(wordlist.Languages, "fr")

	// Comment lines never end up in the dictionary.
	for _, word := range wordlist.Words {
		req.NotContains(word, "#")
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Run("should detect an unambiguous sentence", func(t *testing.T) {
		req := require.New(t)
		lang := DetectLanguage("The quick brown fox jumps over the lazy dog near the river")
		req.Equal("en", lang)
	})

	t.Run("should stay silent on unreliable input", func(t *testing.T) {
		req := require.New(t)
		req.Empty(DetectLanguage("ok"))
	})
}
