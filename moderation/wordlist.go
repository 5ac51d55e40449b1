package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"echoforge/errors"
)

//go:embed wordlists/*.txt
var wordlistFS embed.FS

// Wordlist carries the loaded words plus metadata for logging.
type Wordlist struct {
	Words     []string
	Languages []string
}

// LoadWordlist parses the embedded per-language dictionaries
// (one word per line, "fr.txt" -> language "fr") into a unique word set.
func LoadWordlist() (*Wordlist, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlistFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Wordlist{Words: words, Languages: languages}, nil
}
