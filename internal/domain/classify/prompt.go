package classify

import (
	"fmt"
	"strings"

	"github.com/okian/bingo/internal/domain/tile"
)

// SchemaName identifies the response schema for providers that require a name.
const SchemaName = "bingo_matches"

const instructions = `You analyse a text about mobility policy or a mobility platform and decide which bingo concepts it mentions.

Each concept is listed as "id: label | keywords". Return a concept only when the text contains direct evidence for it: one of its keywords, a close synonym, or a phrase that clearly refers to it. Be conservative. When in doubt, leave the concept out. Never return an id that is not listed.

For every concept you return, give a one-sentence motivation and quote the exact words from the text that support it as evidence.

Respond only with JSON of the form {"matches":[{"id":<int>,"motivation":"<string>","evidence":["<quote>"]}]}. Return {"matches":[]} when nothing matches.`

// Request is a provider-neutral classification call.
type Request struct {
	Model       string
	System      string
	User        string
	Schema      map[string]any
	Temperature float32
	MaxTokens   int
}

// BuildSystemPrompt lists every non-special tile for the classifier.
func BuildSystemPrompt(tiles []tile.Tile) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nConcepts:\n")
	for _, t := range tiles {
		if t.Special() {
			continue
		}
		fmt.Fprintf(&sb, "%d: %s | %s\n", t.ID, t.Label, strings.Join(t.Keywords, ", "))
	}
	return sb.String()
}

// ResponseSchema returns the strict JSON schema for the classifier answer.
// A fresh map is built on every call so callers may modify it.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         map[string]any{"type": "integer"},
						"motivation": map[string]any{"type": "string"},
						"evidence": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required":             []string{"id", "motivation", "evidence"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"matches"},
		"additionalProperties": false,
	}
}
