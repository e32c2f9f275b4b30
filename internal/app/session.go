package app

import (
	"context"
	"fmt"
	"sync"

	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/quiz"
)

// Mode is the kind of working set a session is traversing.
type Mode string

const (
	ModeLinear         Mode = "linear"
	ModeExternalSubset Mode = "external_subset"
	ModeRetrySubset    Mode = "retry_subset"
)

// QuestionSetSource loads a decoded question set by id.
type QuestionSetSource interface {
	QuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// Session is one practice run. Every exported method holds the session lock,
// so operations never overlap.
type Session struct {
	id     string
	userID string
	source QuestionSetSource

	mu sync.Mutex

	baseMode Mode
	base     []domain.QuestionRef
	order    map[domain.QuestionRef]int

	mode     Mode
	working  []domain.QuestionRef
	position int
	answers  []domain.Value
	shown    bool
	complete bool

	sets    map[string]domain.QuestionSet
	results *Results

	favorites *FavoriteTracker
}

// SessionView is the read model handed to transports after every operation.
type SessionView struct {
	SessionID   string                 `json:"sessionId"`
	Mode        Mode                   `json:"mode"`
	Position    int                    `json:"position"`
	Total       int                    `json:"total"`
	IsLast      bool                   `json:"isLast"`
	Complete    bool                   `json:"complete"`
	Ref         *domain.QuestionRef    `json:"ref,omitempty"`
	Question    *domain.Question       `json:"question,omitempty"`
	Answer      domain.Value           `json:"answer"`
	CanCheck    bool                   `json:"canCheck"`
	ResultShown bool                   `json:"resultShown"`
	Result      *domain.ResultEntry    `json:"result,omitempty"`
	Favorite    *domain.FavoriteStatus `json:"favorite,omitempty"`
	Summary     *domain.Summary        `json:"summary,omitempty"`
}

// ReviewView is a read-only look at a previously checked question.
type ReviewView struct {
	Ref      domain.QuestionRef `json:"ref"`
	Question domain.Question    `json:"question"`
	Result   domain.ResultEntry `json:"result"`
}

// NewLinearSession starts a session over set in its original order.
func NewLinearSession(id, userID string, set domain.QuestionSet) (*Session, error) {
	if len(set.Questions) == 0 {
		return nil, domain.ErrEmptyWorkingSet
	}
	refs := make([]domain.QuestionRef, len(set.Questions))
	for i := range set.Questions {
		refs[i] = domain.QuestionRef{SetID: set.ID, Index: i}
	}
	s := newSession(id, userID, nil, ModeLinear, refs)
	s.sets[set.ID] = set
	s.answers = make([]domain.Value, len(refs))
	return s, nil
}

// NewExternalSession starts a session over a caller-supplied list of questions
// that may span several sets, such as a favorites folder. Each question's set
// is loaded from source whenever that question becomes current.
func NewExternalSession(ctx context.Context, id, userID string, refs []domain.QuestionRef, source QuestionSetSource) (*Session, error) {
	if len(refs) == 0 {
		return nil, domain.ErrEmptyWorkingSet
	}
	s := newSession(id, userID, source, ModeExternalSubset, append([]domain.QuestionRef(nil), refs...))
	if err := s.ensureLoaded(ctx, ModeExternalSubset, s.base[0]); err != nil {
		return nil, err
	}
	s.answers = make([]domain.Value, len(refs))
	return s, nil
}

func newSession(id, userID string, source QuestionSetSource, mode Mode, refs []domain.QuestionRef) *Session {
	order := make(map[domain.QuestionRef]int, len(refs))
	for i, ref := range refs {
		if _, seen := order[ref]; !seen {
			order[ref] = i
		}
	}
	return &Session{
		id:       id,
		userID:   userID,
		source:   source,
		baseMode: mode,
		base:     refs,
		order:    order,
		mode:     mode,
		working:  refs,
		sets:     make(map[string]domain.QuestionSet),
		results:  newResults(),
		// replaced by PracticeService; without a service nothing is favorited
		favorites: NewFavoriteTracker(nil, userID, 0, nil),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owner of the session.
func (s *Session) UserID() string { return s.userID }

// Answer stores value for the current question without judging it.
func (s *Session) Answer(value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return domain.ErrSessionComplete
	}
	s.answers[s.position] = value
	s.shown = false
	return nil
}

// CanCheck reports whether Check is currently available.
func (s *Session) CanCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canCheckLocked()
}

func (s *Session) canCheckLocked() bool {
	if s.complete {
		return false
	}
	_, q, ok := s.currentLocked()
	return ok && quiz.CanCheck(q.Type, s.answers[s.position])
}

// Check judges the current answer and records the outcome under the question's
// origin identity, replacing any earlier outcome for it.
func (s *Session) Check() (domain.ResultEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return domain.ResultEntry{}, domain.ErrSessionComplete
	}
	if !s.canCheckLocked() {
		return domain.ResultEntry{}, domain.ErrCheckUnavailable
	}
	ref, q, _ := s.currentLocked()
	answer := s.answers[s.position]
	entry := domain.ResultEntry{
		Question:   ref,
		IsCorrect:  quiz.IsCorrect(q.Type, answer, q),
		UserAnswer: answer,
	}
	s.results.Record(entry, s.order[ref])
	s.shown = true
	return entry, nil
}

// Next advances one question; stepping past the last question completes the session.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return nil
	}
	if s.position+1 >= len(s.working) {
		s.complete = true
		return nil
	}
	return s.moveToLocked(ctx, s.position+1)
}

// Prev steps back one question. From the summary it returns to the last
// question; at the first question it does nothing.
func (s *Session) Prev(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		s.complete = false
		return nil
	}
	if s.position == 0 {
		return nil
	}
	return s.moveToLocked(ctx, s.position-1)
}

// Restart returns to the first question of the original list, clearing all
// answers and results. A retry subset restarts its original list too.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx, s.baseMode, s.base[0]); err != nil {
		return err
	}
	s.mode = s.baseMode
	s.working = s.base
	s.position = 0
	s.answers = make([]domain.Value, len(s.working))
	s.shown = false
	s.complete = false
	s.results.Reset()
	return nil
}

// RetryWrong narrows the working set to the questions whose latest outcome is
// wrong, in origin order. It reports false, changing nothing, when there is
// nothing to retry.
func (s *Session) RetryWrong(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wrong := s.results.Incorrect()
	if len(wrong) == 0 {
		return false, nil
	}
	if err := s.ensureLoaded(ctx, ModeRetrySubset, wrong[0]); err != nil {
		return false, err
	}
	s.mode = ModeRetrySubset
	s.working = wrong
	s.position = 0
	s.answers = make([]domain.Value, len(wrong))
	s.shown = false
	s.complete = false
	return true, nil
}

// Current returns the question at the current position.
func (s *Session) Current() (domain.QuestionRef, domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return domain.QuestionRef{}, domain.Question{}, false
	}
	return s.currentLocked()
}

// Review re-opens a checked question read-only; ok is false if it has no result.
func (s *Session) Review(ref domain.QuestionRef) (ReviewView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.results.Lookup(ref)
	if !ok {
		return ReviewView{}, false
	}
	q, ok := s.questionLocked(ref)
	if !ok {
		return ReviewView{}, false
	}
	return ReviewView{Ref: ref, Question: q, Result: entry}, true
}

// Summary reports the recorded outcomes in origin order.
func (s *Session) Summary() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.Summary(len(s.base))
}

// View snapshots the session for transports.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		SessionID: s.id,
		Mode:      s.mode,
		Position:  s.position,
		Total:     len(s.working),
		IsLast:    s.position == len(s.working)-1,
		Complete:  s.complete,
	}
	if s.complete {
		summary := s.results.Summary(len(s.base))
		view.Summary = &summary
		return view
	}
	ref, q, ok := s.currentLocked()
	if !ok {
		return view
	}
	view.Ref = &ref
	view.Question = &q
	view.Answer = s.answers[s.position]
	view.CanCheck = quiz.CanCheck(q.Type, view.Answer)
	view.ResultShown = s.shown
	if s.shown {
		if entry, ok := s.results.Lookup(ref); ok {
			view.Result = &entry
		}
	}
	return view
}

func (s *Session) currentLocked() (domain.QuestionRef, domain.Question, bool) {
	if s.position < 0 || s.position >= len(s.working) {
		return domain.QuestionRef{}, domain.Question{}, false
	}
	ref := s.working[s.position]
	q, ok := s.questionLocked(ref)
	return ref, q, ok
}

func (s *Session) questionLocked(ref domain.QuestionRef) (domain.Question, bool) {
	set, ok := s.sets[ref.SetID]
	if !ok || ref.Index < 0 || ref.Index >= len(set.Questions) {
		return domain.Question{}, false
	}
	return set.Questions[ref.Index], true
}

// moveToLocked enters pos, clearing its answer slot. The position only
// changes once the question is available.
func (s *Session) moveToLocked(ctx context.Context, pos int) error {
	if err := s.ensureLoaded(ctx, s.mode, s.working[pos]); err != nil {
		return err
	}
	s.position = pos
	s.answers[pos] = domain.Value{}
	s.shown = false
	return nil
}

// ensureLoaded makes ref's set available. Subset modes reload the set from the
// source every time so that each question is read fresh.
func (s *Session) ensureLoaded(ctx context.Context, mode Mode, ref domain.QuestionRef) error {
	if mode != ModeLinear && s.source != nil {
		set, err := s.source.QuestionSet(ctx, ref.SetID)
		if err != nil {
			return fmt.Errorf("load question set %s: %w", ref.SetID, err)
		}
		set.ID = ref.SetID
		s.sets[ref.SetID] = set
	}
	set, ok := s.sets[ref.SetID]
	if !ok {
		return fmt.Errorf("question set %s: %w", ref.SetID, domain.ErrQuestionSetNotFound)
	}
	if ref.Index < 0 || ref.Index >= len(set.Questions) {
		return fmt.Errorf("question %s[%d]: %w", ref.SetID, ref.Index, domain.ErrQuestionOutOfRange)
	}
	return nil
}
