package tools

import (
	"context"
	"fmt"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/internal/chat"
)

// Ratio scores how close two strings are on an edit-distance basis.
// Symmetric, in [0,1]; equal non-empty strings score 1.0, and an empty
// input on either side scores 0.0.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1.0 - float64(editDistance(ra, rb))/float64(longest)
}

// editDistance is the Levenshtein distance over runes, computed with a
// rolling single-row table.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = next
		}
	}

	return row[len(b)]
}

type similarityArgs struct {
	TextA string `json:"text_a" jsonschema:"description=First text to compare"`
	TextB string `json:"text_b" jsonschema:"description=Second text to compare"`
}

func similarityCapability() chat.Capability {
	return chat.Capability{
		Name:        "text_similarity",
		Description: "Scores how similar two texts are, from 0.0 (unrelated) to 1.0 (identical).",
		Parameters:  llm.GenerateSchema[similarityArgs](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			args, err := llm.ParseToolArguments[similarityArgs](call.Arguments)
			if err != nil {
				return "", fmt.Errorf("parsing arguments: %w", err)
			}
			return fmt.Sprintf("Similarity score: %.2f", Ratio(args.TextA, args.TextB)), nil
		},
	}
}
