package utils

// CountTokens estimates the number of tokens in text using the
// 1 token ~= 4 characters heuristic. Non-empty text counts as at least 1.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// CountMessageTokens sums CountTokens over a system prompt and its history.
func CountMessageTokens(system string, contents ...string) int {
	n := CountTokens(system)
	for _, c := range contents {
		n += CountTokens(c)
	}
	return n
}
