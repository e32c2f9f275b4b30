package quiz

import (
	"strconv"
	"strings"

	"lecture-quiz-service/internal/domain"
)

// IsCorrect judges answer against the canonical question q under type t.
// Missing structural data makes the answer incorrect; it never panics.
func IsCorrect(t domain.QuestionType, answer domain.Value, q domain.Question) bool {
	if answer.IsNull() {
		return false
	}
	switch t {
	case domain.TypeMultipleChoice:
		return checkMultipleChoice(answer, q)
	case domain.TypeTrueFalse:
		return checkTrueFalse(answer, q)
	case domain.TypeSequence:
		return checkSequence(answer, q)
	case domain.TypeFillInTheBlank:
		return checkFillInTheBlank(answer, q)
	case domain.TypeShortAnswer:
		return checkShortAnswer(answer, q)
	case domain.TypeDescriptive:
		return checkDescriptive(answer, q)
	}
	return false
}

// CanCheck reports whether answer is complete enough to be judged for type t.
func CanCheck(t domain.QuestionType, answer domain.Value) bool {
	if answer.IsNull() {
		return false
	}
	switch t {
	case domain.TypeShortAnswer, domain.TypeDescriptive:
		return !answer.IsBlank()
	}
	return true
}

// choiceKey maps a single uppercase letter to its 1-based option index.
func choiceKey(v domain.Value) domain.Value {
	if v.Kind == domain.KindText && len(v.Text) == 1 && v.Text[0] >= 'A' && v.Text[0] <= 'Z' {
		return domain.Number(float64(v.Text[0]-'A') + 1)
	}
	return v
}

func checkMultipleChoice(answer domain.Value, q domain.Question) bool {
	if q.CorrectAnswer.IsNull() {
		return false
	}
	return choiceKey(q.CorrectAnswer).Equal(choiceKey(answer))
}

// truthy reads text "true"/"false" as booleans; any other non-empty text is true.
func truthy(v domain.Value) bool {
	switch v.Kind {
	case domain.KindBool:
		return v.Bool
	case domain.KindNumber:
		return v.Number != 0
	case domain.KindText:
		if b, err := strconv.ParseBool(strings.TrimSpace(v.Text)); err == nil {
			return b
		}
		return v.Text != ""
	case domain.KindList, domain.KindMap:
		return true
	}
	return false
}

func checkTrueFalse(answer domain.Value, q domain.Question) bool {
	if q.CorrectAnswer.IsNull() {
		return false
	}
	return truthy(answer) == truthy(q.CorrectAnswer)
}

func checkSequence(answer domain.Value, q domain.Question) bool {
	if answer.Kind != domain.KindList || len(q.CorrectSequence) == 0 {
		return false
	}
	if len(answer.List) != len(q.CorrectSequence) {
		return false
	}
	for i, id := range q.CorrectSequence {
		if answer.List[i] != id {
			return false
		}
	}
	return true
}

func sameFold(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

func checkFillInTheBlank(answer domain.Value, q domain.Question) bool {
	if answer.Kind == domain.KindMap {
		return checkBlankMap(answer.Map, q)
	}
	if answer.Kind == domain.KindList {
		return false
	}
	want := ""
	if len(q.Blanks) > 0 {
		want = q.Blanks[0].CorrectAnswer
	}
	if want == "" && !q.CorrectAnswer.IsNull() {
		want = q.CorrectAnswer.String()
	}
	if strings.TrimSpace(want) == "" {
		return false
	}
	return sameFold(answer.String(), want)
}

// checkBlankMap is stricter than matching the submitted entries: every blank
// needs an entry and every entry must match its blank, falling back to
// correct_answers by position. A partial map is incorrect.
func checkBlankMap(answers map[string]string, q domain.Question) bool {
	if len(answers) == 0 {
		return false
	}
	for id, got := range answers {
		want, ok := blankAnswer(id, q)
		if !ok || !sameFold(got, want) {
			return false
		}
	}
	for _, b := range q.Blanks {
		if _, ok := answers[b.ID]; !ok {
			return false
		}
	}
	return true
}

func blankAnswer(id string, q domain.Question) (string, bool) {
	pos := -1
	for i, b := range q.Blanks {
		if b.ID == id {
			if strings.TrimSpace(b.CorrectAnswer) != "" {
				return b.CorrectAnswer, true
			}
			pos = i
			break
		}
	}
	if pos < 0 {
		n, err := strconv.Atoi(id)
		if err != nil {
			return "", false
		}
		pos = n
	}
	if pos < 0 || pos >= len(q.CorrectAnswers) || strings.TrimSpace(q.CorrectAnswers[pos]) == "" {
		return "", false
	}
	return q.CorrectAnswers[pos], true
}

func checkShortAnswer(answer domain.Value, q domain.Question) bool {
	accepted := make([]string, 0, len(q.AlternativeAnswers)+1)
	if !q.CorrectAnswer.IsNull() {
		accepted = append(accepted, q.CorrectAnswer.String())
	}
	accepted = append(accepted, q.AlternativeAnswers...)

	got := strings.TrimSpace(answer.String())
	if got == "" {
		return false
	}
	for _, want := range accepted {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		if q.CaseSensitive && got == want {
			return true
		}
		if !q.CaseSensitive && strings.EqualFold(got, want) {
			return true
		}
	}
	return false
}

// checkDescriptive counts keywords present in the answer; at least half,
// rounded up, must appear. Zero keywords never pass.
func checkDescriptive(answer domain.Value, q domain.Question) bool {
	text := strings.ToLower(answer.String())
	total, matched := 0, 0
	for _, kw := range q.AnswerKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		total++
		if strings.Contains(text, kw) {
			matched++
		}
	}
	if total == 0 {
		return false
	}
	return matched >= (total+1)/2
}
