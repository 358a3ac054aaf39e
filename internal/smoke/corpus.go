package smoke

import (
	"fmt"
	"os"
	"strings"
)

// defaultTexts cover single tiles, a full line and a text with no concepts.
var defaultTexts = []string{
	"De gemeente wil minder auto's in het centrum en meer ruimte voor de fiets.",
	"Het nieuwe beleid combineert deelauto's, een betere bus en veilige fietspaden rond het station.",
	"Betaald parkeren wordt uitgebreid en de opbrengst gaat naar openbaar vervoer en laadpalen.",
	"Vandaag regent het en de koffie is koud.",
}

// LoadTexts reads blank-line separated texts from path. An empty path
// returns the built-in corpus.
func LoadTexts(path string) ([]string, error) {
	if path == "" {
		out := make([]string, len(defaultTexts))
		copy(out, defaultTexts)
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}
	return splitTexts(string(data)), nil
}

func splitTexts(s string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if b := strings.TrimSpace(block); b != "" {
			out = append(out, b)
		}
	}
	return out
}
