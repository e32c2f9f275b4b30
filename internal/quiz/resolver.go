package quiz

import (
	"strings"
	"unicode"

	"lecture-quiz-service/internal/domain"
)

// RawQuestion is a question record as decoded from a payload, before normalization.
type RawQuestion map[string]any

// BlankMarker is the run of underscores that marks a gap in question text.
const BlankMarker = "____"

var (
	descriptiveMarkers = []string{"서술", "주관식", "descriptive", "essay"}
	trueFalseMarkers   = []string{"o/x", "true/false", "true or false", "true_false", "참/거짓", "참거짓", "진위"}
	trueFalseWords     = []string{"ox", "tf"}
)

// Resolve infers the canonical type of q. Hint markers win over structure, and
// structural checks run in a fixed order: keyword/descriptive fields first, then
// sequence, short answer, fill-in-the-blank and true/false.
func Resolve(q RawQuestion, hint string) domain.QuestionType {
	hint = strings.ToLower(hint)
	if containsAny(hint, descriptiveMarkers) {
		return domain.TypeDescriptive
	}
	if containsAny(hint, trueFalseMarkers) || hasWord(hint, trueFalseWords) {
		return domain.TypeTrueFalse
	}

	if _, ok := q["answer_keywords"].([]any); ok {
		return domain.TypeDescriptive
	}
	if _, ok := q["model_answer"]; ok {
		return domain.TypeDescriptive
	}
	if _, ok := q["correct_sequence"]; ok {
		return domain.TypeSequence
	}
	text := questionText(q)
	_, hasBlanks := q["blanks"]
	_, hasCorrectAnswers := q["correct_answers"]
	blankShaped := hasBlanks || hasCorrectAnswers || strings.Contains(text, BlankMarker)
	if _, ok := q["correct_answer"].(string); ok && !hasOptions(q) && !blankShaped {
		return domain.TypeShortAnswer
	}
	if blankShaped {
		return domain.TypeFillInTheBlank
	}
	if _, ok := q["correct_answer"].(bool); ok {
		return domain.TypeTrueFalse
	}
	return domain.TypeMultipleChoice
}

func hasOptions(q RawQuestion) bool {
	opts, ok := q["options"].([]any)
	return ok && len(opts) > 0
}

func questionText(q RawQuestion) string {
	if s, ok := q["question_text"].(string); ok && s != "" {
		return s
	}
	s, _ := q["question"].(string)
	return s
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// hasWord matches short markers only as whole words so "ox" does not match "box".
func hasWord(s string, words []string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
