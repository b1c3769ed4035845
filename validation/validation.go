package validation

import (
	"errors"
	"strings"
	"unicode"
)

const (
	minQuestionLength = 3
	maxQuestionLength = 4000
)

var (
	ErrQuestionEmpty     = errors.New("question is empty")
	ErrQuestionTooShort  = errors.New("question is too short")
	ErrQuestionTooLong   = errors.New("question is too long")
	ErrQuestionGibberish = errors.New("question does not look like a sentence")
)

// ValidateQuestion rejects input that cannot be a natural-language question
// before any model call is spent on it.
func ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	switch {
	case trimmed == "":
		return ErrQuestionEmpty
	case len([]rune(trimmed)) < minQuestionLength:
		return ErrQuestionTooShort
	case len(trimmed) > maxQuestionLength:
		return ErrQuestionTooLong
	}

	letters, digits, total := 0, 0, 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
		if unicode.IsDigit(r) {
			digits++
		}
	}
	// Should have some letters (at least 30% of characters should be letters)
	if float64(letters)/float64(total) < 0.3 {
		return ErrQuestionGibberish
	}
	if float64(digits)/float64(total) > 0.5 {
		return ErrQuestionGibberish
	}

	words := strings.Fields(trimmed)
	if len(words) == 1 && isRepeatedCharacters(words[0]) {
		return ErrQuestionGibberish
	}
	if hasRepeatedLetters(trimmed, 5) {
		return ErrQuestionGibberish
	}
	return nil
}

// isRepeatedCharacters checks if a string is just repeated characters
func isRepeatedCharacters(s string) bool {
	runes := []rune(s)
	if len(runes) < 3 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// hasRepeatedLetters reports n or more identical consecutive letters, e.g.
// "aaaaa". Digits are ignored so amounts like 100000 pass.
func hasRepeatedLetters(s string, n int) bool {
	var prev rune
	count := 0
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) {
			prev, count = 0, 0
			continue
		}
		if r == prev {
			count++
		} else {
			prev, count = r, 1
		}
		if count >= n {
			return true
		}
	}
	return false
}
