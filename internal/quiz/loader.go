package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"lecture-quiz-service/internal/domain"
)

// Load decodes an encoded payload into a question set. The payload is either
// {type, questions: [...]}, a bare list of questions, or a single question
// record. hint is the display-type label shown to the user, if any.
func Load(raw []byte, hint string) (domain.QuestionSet, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	var (
		topType string
		items   []any
	)
	switch t := doc.(type) {
	case map[string]any:
		topType, _ = t["type"].(string)
		if qs, ok := t["questions"]; ok && qs != nil {
			list, ok := qs.([]any)
			if !ok {
				return domain.QuestionSet{}, fmt.Errorf("%w: questions is %T, want list", domain.ErrMalformedPayload, qs)
			}
			items = list
		} else {
			items = []any{t}
		}
	case []any:
		items = t
	default:
		return domain.QuestionSet{}, fmt.Errorf("%w: top-level %T, want object or list", domain.ErrMalformedPayload, doc)
	}

	questions := make([]RawQuestion, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return domain.QuestionSet{}, fmt.Errorf("%w: question %d is %T, want object", domain.ErrMalformedPayload, i, item)
		}
		questions = append(questions, RawQuestion(m))
	}

	set := domain.QuestionSet{
		Type:      effectiveType(questions, topType, hint),
		Questions: make([]domain.Question, 0, len(questions)),
	}
	for _, q := range questions {
		set.Questions = append(set.Questions, Normalize(q, set.Type))
	}
	return set, nil
}

// effectiveType prefers the first question's own type, then the payload's
// top-level type, then structural resolution of the first question.
func effectiveType(questions []RawQuestion, topType, hint string) domain.QuestionType {
	if len(questions) > 0 {
		if own, ok := questions[0]["type"].(string); ok {
			if t, ok := domain.ParseQuestionType(strings.ToLower(strings.TrimSpace(own))); ok {
				return t
			}
		}
	}
	if t, ok := domain.ParseQuestionType(strings.ToLower(strings.TrimSpace(topType))); ok {
		return t
	}
	if len(questions) == 0 {
		return domain.TypeMultipleChoice
	}
	return Resolve(questions[0], hint)
}
