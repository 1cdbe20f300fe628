package util

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TruncateTokens cuts text to at most maxTokens tokens using the given
// tiktoken encoding. Text already under the limit is returned unchanged.
func TruncateTokens(text string, encoder string, maxTokens int) (string, error) {
	if maxTokens <= 0 || text == "" {
		return "", nil
	}

	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return "", err
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return enc.Decode(tokens[:maxTokens]), nil
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// FirstNWords returns at most n leading words of text joined by single spaces.
func FirstNWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}
