package usecases

import "strings"

// ExtractAnswer strips a prompt echo from a raw completion.
//
// Models that echo the prompt repeat the instruction-closing delimiter, so the
// answer is whatever follows its last occurrence. Completions without the
// delimiter are taken whole. Text from the first stop marker on is dropped for
// backends that do not honour stop sequences themselves. A completion cut off
// at the token limit is returned as is.
func ExtractAnswer(raw string, format PromptFormat) string {
	answer := raw
	if format.Close != "" {
		if i := strings.LastIndex(answer, strings.TrimSpace(format.Close)); i >= 0 {
			answer = answer[i+len(strings.TrimSpace(format.Close)):]
		}
	}
	if format.Stop != "" {
		if i := strings.Index(answer, format.Stop); i >= 0 {
			answer = answer[:i]
		}
	}
	return strings.TrimSpace(answer)
}

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u02bc", "'")

// IsFallback reports whether answer is the grounded refusal. Typographic
// apostrophes count as plain ones.
func IsFallback(answer string) bool {
	return strings.Contains(apostrophes.Replace(answer), strings.TrimSuffix(FallbackAnswer, "."))
}
