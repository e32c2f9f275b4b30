package app

import (
	"context"
	"errors"
	"testing"

	"lecture-quiz-service/internal/domain"
)

func fiveQuestionSet() domain.QuestionSet {
	questions := make([]domain.Question, 5)
	for i := range questions {
		questions[i] = domain.Question{
			Type:          domain.TypeTrueFalse,
			QuestionText:  "statement",
			CorrectAnswer: domain.Bool(true),
		}
	}
	return domain.QuestionSet{ID: "set-1", Type: domain.TypeTrueFalse, Questions: questions}
}

func answerAndCheck(t *testing.T, s *Session, v domain.Value) domain.ResultEntry {
	t.Helper()
	if err := s.Answer(v); err != nil {
		t.Fatalf("answer: %v", err)
	}
	entry, err := s.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return entry
}

func TestRetryWrongCollectsIncorrectInOriginOrder(t *testing.T) {
	ctx := context.Background()
	s, err := NewLinearSession("s1", "u1", fiveQuestionSet())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	outcomes := []bool{true, false, true, false, true}
	for i, correct := range outcomes {
		entry := answerAndCheck(t, s, domain.Bool(correct))
		if entry.IsCorrect != correct {
			t.Fatalf("question %d: expected correct=%v", i, correct)
		}
		if err := s.Next(ctx); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if !s.View().Complete {
		t.Fatalf("expected session complete after last question")
	}

	retried, err := s.RetryWrong(ctx)
	if err != nil || !retried {
		t.Fatalf("retry wrong: retried=%v err=%v", retried, err)
	}
	view := s.View()
	if view.Mode != ModeRetrySubset || view.Total != 2 || view.Position != 0 {
		t.Fatalf("unexpected retry view: %+v", view)
	}
	if view.Ref.Index != 1 {
		t.Fatalf("expected first retry question to be origin 1, got %d", view.Ref.Index)
	}
	if !view.Answer.IsNull() {
		t.Fatalf("expected cleared answer slot, got %v", view.Answer)
	}

	if err := s.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	view = s.View()
	if view.Ref.Index != 3 || !view.IsLast {
		t.Fatalf("expected origin 3 as last retry question, got %+v", view)
	}
}

func TestRetryWrongNothingToRetry(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLinearSession("s1", "u1", fiveQuestionSet())
	answerAndCheck(t, s, domain.Bool(true))
	_ = s.Next(ctx)

	before := s.View()
	retried, err := s.RetryWrong(ctx)
	if err != nil || retried {
		t.Fatalf("expected no-op retry, got retried=%v err=%v", retried, err)
	}
	after := s.View()
	if after.Mode != before.Mode || after.Position != before.Position || after.Total != before.Total {
		t.Fatalf("retry without wrong answers changed state: before=%+v after=%+v", before, after)
	}
}

func TestRestartLinearClearsEverything(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLinearSession("s1", "u1", fiveQuestionSet())
	for i := 0; i < 3; i++ {
		answerAndCheck(t, s, domain.Bool(false))
		_ = s.Next(ctx)
	}
	_ = s.Answer(domain.Bool(true))

	if err := s.Restart(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if view := s.View(); view.Position != 0 || view.Mode != ModeLinear {
		t.Fatalf("expected position 0 linear, got %+v", view)
	}
	for i, a := range s.answers {
		if !a.IsNull() {
			t.Fatalf("answer slot %d not cleared: %v", i, a)
		}
	}
	if s.Summary().Visited != 0 {
		t.Fatalf("expected results cleared")
	}
}

func TestCheckReplacesEarlierResult(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLinearSession("s1", "u1", fiveQuestionSet())
	answerAndCheck(t, s, domain.Bool(false))
	_ = s.Next(ctx)
	_ = s.Prev(ctx)
	answerAndCheck(t, s, domain.Bool(true))

	summary := s.Summary()
	if summary.Visited != 1 || summary.Correct != 1 {
		t.Fatalf("expected one correct entry, got %+v", summary)
	}
}

func TestCheckGuard(t *testing.T) {
	set := domain.QuestionSet{ID: "set-2", Type: domain.TypeShortAnswer, Questions: []domain.Question{
		{Type: domain.TypeShortAnswer, CorrectAnswer: domain.Text("Paris"), AlternativeAnswers: []string{}},
	}}
	s, _ := NewLinearSession("s1", "u1", set)

	if _, err := s.Check(); !errors.Is(err, domain.ErrCheckUnavailable) {
		t.Fatalf("expected check unavailable for null answer, got %v", err)
	}
	_ = s.Answer(domain.Text("   "))
	if s.CanCheck() {
		t.Fatalf("expected whitespace answer to disable check")
	}
	_ = s.Answer(domain.Text("paris"))
	entry, err := s.Check()
	if err != nil || !entry.IsCorrect {
		t.Fatalf("expected correct check, got %+v err=%v", entry, err)
	}
	if view := s.View(); !view.ResultShown || view.Result == nil {
		t.Fatalf("expected result shown, got %+v", view)
	}
}

func TestNavigationBounds(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLinearSession("s1", "u1", fiveQuestionSet())

	if err := s.Prev(ctx); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if s.View().Position != 0 {
		t.Fatalf("prev below first element must be a no-op")
	}

	_ = s.Answer(domain.Bool(true))
	_ = s.Next(ctx)
	_ = s.Answer(domain.Bool(true))
	_ = s.Prev(ctx)
	if view := s.View(); view.Position != 0 || !view.Answer.IsNull() {
		t.Fatalf("expected position 0 with cleared answer, got %+v", view)
	}

	for i := 0; i < 5; i++ {
		_ = s.Next(ctx)
	}
	view := s.View()
	if !view.Complete || view.Summary == nil || view.Summary.Total != 5 {
		t.Fatalf("expected completed session with summary, got %+v", view)
	}
	if err := s.Answer(domain.Bool(true)); !errors.Is(err, domain.ErrSessionComplete) {
		t.Fatalf("expected complete error, got %v", err)
	}
	_ = s.Prev(ctx)
	if view := s.View(); view.Complete || view.Position != 4 {
		t.Fatalf("expected return to last question, got %+v", view)
	}
}

func TestEmptySetIsRejected(t *testing.T) {
	if _, err := NewLinearSession("s1", "u1", domain.QuestionSet{ID: "empty"}); !errors.Is(err, domain.ErrEmptyWorkingSet) {
		t.Fatalf("expected empty working set error, got %v", err)
	}
}

type countingSource struct {
	sets  map[string]domain.QuestionSet
	loads map[string]int
}

func newCountingSource() *countingSource {
	mc := func(correct string) domain.Question {
		return domain.Question{Type: domain.TypeMultipleChoice, CorrectAnswer: domain.Text(correct)}
	}
	return &countingSource{
		sets: map[string]domain.QuestionSet{
			"bio":  {Type: domain.TypeMultipleChoice, Questions: []domain.Question{mc("A"), mc("B"), mc("C")}},
			"chem": {Type: domain.TypeMultipleChoice, Questions: []domain.Question{mc("D"), mc("A")}},
		},
		loads: make(map[string]int),
	}
}

func (c *countingSource) QuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	c.loads[setID]++
	set, ok := c.sets[setID]
	if !ok {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	return set, nil
}

func TestExternalSubsetLoadsEachQuestionFresh(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource()
	refs := []domain.QuestionRef{{SetID: "chem", Index: 1}, {SetID: "bio", Index: 2}, {SetID: "bio", Index: 0}}

	s, err := NewExternalSession(ctx, "s1", "u1", refs, src)
	if err != nil {
		t.Fatalf("new external session: %v", err)
	}
	answerAndCheck(t, s, domain.Number(1)) // chem[1] = A -> correct
	_ = s.Next(ctx)
	answerAndCheck(t, s, domain.Number(1)) // bio[2] = C -> wrong
	_ = s.Next(ctx)
	answerAndCheck(t, s, domain.Text("B")) // bio[0] = A -> wrong
	if src.loads["bio"] != 2 || src.loads["chem"] != 1 {
		t.Fatalf("expected a load per entered question, got %v", src.loads)
	}

	retried, err := s.RetryWrong(ctx)
	if err != nil || !retried {
		t.Fatalf("retry: %v %v", retried, err)
	}
	view := s.View()
	if view.Total != 2 || *view.Ref != refs[1] {
		t.Fatalf("expected retry over external order starting at bio[2], got %+v", view)
	}

	if err := s.Restart(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	view = s.View()
	if view.Mode != ModeExternalSubset || *view.Ref != refs[0] || view.Total != 3 {
		t.Fatalf("expected restart at first external element, got %+v", view)
	}
}

func TestExternalSubsetMissingSet(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource()
	_, err := NewExternalSession(ctx, "s1", "u1", []domain.QuestionRef{{SetID: "physics", Index: 0}}, src)
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	s, _ := NewExternalSession(ctx, "s1", "u1", []domain.QuestionRef{{SetID: "bio", Index: 0}, {SetID: "bio", Index: 9}}, src)
	if err := s.Next(ctx); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if s.View().Position != 0 {
		t.Fatalf("failed move must keep position")
	}
}

func TestReviewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLinearSession("s1", "u1", fiveQuestionSet())
	answerAndCheck(t, s, domain.Bool(false))
	_ = s.Next(ctx)

	review, ok := s.Review(domain.QuestionRef{SetID: "set-1", Index: 0})
	if !ok || review.Result.IsCorrect || !review.Result.UserAnswer.Equal(domain.Bool(false)) {
		t.Fatalf("unexpected review: %+v ok=%v", review, ok)
	}
	if _, ok := s.Review(domain.QuestionRef{SetID: "set-1", Index: 3}); ok {
		t.Fatalf("unchecked question must not be reviewable")
	}
	if s.View().Position != 1 {
		t.Fatalf("review must not move the session")
	}
}
