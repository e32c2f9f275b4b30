package quiz

import (
	"regexp"
	"strconv"
	"strings"

	"lecture-quiz-service/internal/domain"
)

var blankRun = regexp.MustCompile(`_{4,}`)

// Normalize builds the canonical record for raw under type t. raw is never
// mutated, and Normalize(Fields(Normalize(raw, t)), t) equals Normalize(raw, t).
func Normalize(raw RawQuestion, t domain.QuestionType) domain.Question {
	q := domain.Question{
		Type:         t,
		QuestionText: questionText(raw),
		Explanation:  stringOf(raw["explanation"]),
	}
	correct, _ := domain.ValueOf(raw["correct_answer"])

	switch t {
	case domain.TypeMultipleChoice:
		q.Options = optionsOf(raw["options"])
		q.CorrectAnswer = correct
	case domain.TypeTrueFalse:
		if correct.Kind == domain.KindText {
			switch strings.ToLower(strings.TrimSpace(correct.Text)) {
			case "true":
				correct = domain.Bool(true)
			case "false":
				correct = domain.Bool(false)
			}
		}
		q.CorrectAnswer = correct
	case domain.TypeSequence:
		q.Items = optionsOf(raw["items"])
		if q.Items == nil {
			q.Items = []domain.Option{}
		}
		q.CorrectSequence, _ = stringsOf(raw["correct_sequence"])
	case domain.TypeFillInTheBlank:
		q.CorrectAnswer = correct
		q.CorrectAnswers, _ = stringsOf(raw["correct_answers"])
		q.Blanks = blanksOf(raw["blanks"])
		if q.Blanks == nil {
			q.Blanks = synthesizeBlanks(q.QuestionText, q.CorrectAnswers, correct)
		}
	case domain.TypeShortAnswer:
		q.CorrectAnswer = correct
		q.AlternativeAnswers, _ = stringsOf(raw["alternative_answers"])
		if q.AlternativeAnswers == nil {
			q.AlternativeAnswers = []string{}
		}
		q.CaseSensitive = boolOf(raw["case_sensitive"])
	case domain.TypeDescriptive:
		q.AnswerKeywords = keywordsOf(raw["answer_keywords"])
		q.ModelAnswer = stringOf(raw["model_answer"])
	}
	return q
}

// synthesizeBlanks creates one blank per marker run, pulling answers from
// correct_answers by position. The single legacy correct_answer fills the first
// blank when correct_answers has nothing for it.
func synthesizeBlanks(text string, answers []string, single domain.Value) []domain.Blank {
	markers := len(blankRun.FindAllStringIndex(text, -1))
	if markers == 0 {
		if single.IsNull() {
			return []domain.Blank{}
		}
		return []domain.Blank{{ID: "0", CorrectAnswer: single.String()}}
	}
	blanks := make([]domain.Blank, markers)
	for i := range blanks {
		blanks[i].ID = strconv.Itoa(i)
		switch {
		case i < len(answers):
			blanks[i].CorrectAnswer = answers[i]
		case i == 0 && !single.IsNull():
			blanks[i].CorrectAnswer = single.String()
		}
	}
	return blanks
}

// Fields renders a canonical question back into its raw record form.
func Fields(q domain.Question) RawQuestion {
	raw := RawQuestion{
		"type":          string(q.Type),
		"question_text": q.QuestionText,
	}
	if q.Explanation != "" {
		raw["explanation"] = q.Explanation
	}
	if !q.CorrectAnswer.IsNull() {
		raw["correct_answer"] = q.CorrectAnswer.Interface()
	}
	if q.Options != nil {
		raw["options"] = optionsRaw(q.Options)
	}
	if q.Items != nil {
		raw["items"] = optionsRaw(q.Items)
	}
	if q.CorrectSequence != nil {
		raw["correct_sequence"] = stringsRaw(q.CorrectSequence)
	}
	if q.Blanks != nil {
		blanks := make([]any, len(q.Blanks))
		for i, b := range q.Blanks {
			blanks[i] = map[string]any{"id": b.ID, "correct_answer": b.CorrectAnswer}
		}
		raw["blanks"] = blanks
	}
	if q.CorrectAnswers != nil {
		raw["correct_answers"] = stringsRaw(q.CorrectAnswers)
	}
	if q.AlternativeAnswers != nil {
		raw["alternative_answers"] = stringsRaw(q.AlternativeAnswers)
	}
	if q.Type == domain.TypeShortAnswer {
		raw["case_sensitive"] = q.CaseSensitive
	}
	if q.AnswerKeywords != nil {
		raw["answer_keywords"] = stringsRaw(q.AnswerKeywords)
	}
	if q.Type == domain.TypeDescriptive {
		raw["model_answer"] = q.ModelAnswer
	}
	return raw
}

func optionsRaw(opts []domain.Option) []any {
	out := make([]any, len(opts))
	for i, o := range opts {
		out[i] = map[string]any{"id": o.ID, "text": o.Text}
	}
	return out
}

func stringsRaw(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func stringOf(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	v, err := domain.ValueOf(raw)
	if err != nil {
		return ""
	}
	return v.String()
}

func boolOf(raw any) bool {
	switch t := raw.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// stringsOf reads a list of scalars; ok is false when raw is not a list.
func stringsOf(raw any) ([]string, bool) {
	switch t := raw.(type) {
	case []string:
		return append([]string{}, t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, stringOf(item))
		}
		return out, true
	}
	return nil, false
}

func keywordsOf(raw any) []string {
	if s, ok := raw.(string); ok {
		out := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	if list, ok := stringsOf(raw); ok {
		return list
	}
	return []string{}
}

// optionsOf accepts either {id, text} records or bare strings; bare strings get
// letter ids so that "B" and the 1-based index 2 name the same option.
func optionsOf(raw any) []domain.Option {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.Option, 0, len(list))
	for i, item := range list {
		switch t := item.(type) {
		case map[string]any:
			id := stringOf(t["id"])
			if id == "" {
				id = optionID(i)
			}
			out = append(out, domain.Option{ID: id, Text: stringOf(t["text"])})
		default:
			out = append(out, domain.Option{ID: optionID(i), Text: stringOf(t)})
		}
	}
	return out
}

func blanksOf(raw any) []domain.Blank {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.Blank, 0, len(list))
	for i, item := range list {
		b := domain.Blank{ID: strconv.Itoa(i)}
		switch t := item.(type) {
		case map[string]any:
			if id := stringOf(t["id"]); id != "" {
				b.ID = id
			}
			b.CorrectAnswer = stringOf(t["correct_answer"])
		default:
			b.CorrectAnswer = stringOf(t)
		}
		out = append(out, b)
	}
	return out
}

func optionID(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}
