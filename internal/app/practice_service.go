package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/logger"
)

// SessionRepository abstracts where live practice sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionSetRepository loads decoded question sets (from cache/backing store).
type QuestionSetRepository interface {
	QuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// PracticeService contains the practice-session use cases.
type PracticeService struct {
	sessions        SessionRepository
	sets            QuestionSetRepository
	favorites       FavoriteService
	favoriteTimeout time.Duration
	log             *logger.Logger
	newID           func() string
}

// Option customises a PracticeService.
type Option func(*PracticeService)

// WithFavoriteTimeout bounds each background call to the favorite service.
func WithFavoriteTimeout(d time.Duration) Option {
	return func(s *PracticeService) { s.favoriteTimeout = d }
}

// WithIDGenerator replaces the session id generator; used by tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *PracticeService) { s.newID = fn }
}

// NewPracticeService wires the use cases. favorites may be nil, in which case
// nothing is ever reported as favorited.
func NewPracticeService(sessions SessionRepository, sets QuestionSetRepository, favorites FavoriteService, log *logger.Logger, opts ...Option) *PracticeService {
	s := &PracticeService{
		sessions:        sessions,
		sets:            sets,
		favorites:       favorites,
		favoriteTimeout: 5 * time.Second,
		log:             log,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartLinear begins practice over one question set in its original order.
func (s *PracticeService) StartLinear(ctx context.Context, userID, setID string) (SessionView, error) {
	set, err := s.sets.QuestionSet(ctx, setID)
	if err != nil {
		return SessionView{}, err
	}
	set.ID = setID
	session, err := NewLinearSession(s.newID(), userID, set)
	if err != nil {
		return SessionView{}, err
	}
	s.register(session)
	session.favorites.Refresh(FavoriteKeyOf(domain.QuestionRef{SetID: setID, Index: 0}))
	s.log.Info("practice session started", "session_id", session.ID(), "user_id", userID, "mode", ModeLinear, "set_id", setID, "questions", len(set.Questions))
	return s.view(session), nil
}

// StartExternal begins practice over a caller-supplied list, such as the
// contents of a favorites folder.
func (s *PracticeService) StartExternal(ctx context.Context, userID string, refs []domain.QuestionRef) (SessionView, error) {
	session, err := NewExternalSession(ctx, s.newID(), userID, refs, s.sets)
	if err != nil {
		return SessionView{}, err
	}
	keys := make([]domain.FavoriteKey, len(refs))
	for i, ref := range refs {
		keys[i] = FavoriteKeyOf(ref)
	}
	s.register(session)
	session.favorites.Prefetch(keys)
	s.log.Info("practice session started", "session_id", session.ID(), "user_id", userID, "mode", ModeExternalSubset, "questions", len(refs))
	return s.view(session), nil
}

// Answer stores the user's answer for the current question.
func (s *PracticeService) Answer(_ context.Context, sessionID string, value domain.Value) (SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if err := session.Answer(value); err != nil {
		return SessionView{}, err
	}
	return s.view(session), nil
}

// Check judges the current answer.
func (s *PracticeService) Check(_ context.Context, sessionID string) (domain.ResultEntry, SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.ResultEntry{}, SessionView{}, err
	}
	entry, err := session.Check()
	if err != nil {
		return domain.ResultEntry{}, SessionView{}, err
	}
	return entry, s.view(session), nil
}

// Next moves to the following question or to the summary.
func (s *PracticeService) Next(ctx context.Context, sessionID string) (SessionView, error) {
	return s.navigate(sessionID, func(session *Session) error { return session.Next(ctx) })
}

// Prev moves to the preceding question.
func (s *PracticeService) Prev(ctx context.Context, sessionID string) (SessionView, error) {
	return s.navigate(sessionID, func(session *Session) error { return session.Prev(ctx) })
}

// Restart clears the session and returns to the first question of the original list.
func (s *PracticeService) Restart(ctx context.Context, sessionID string) (SessionView, error) {
	return s.navigate(sessionID, func(session *Session) error { return session.Restart(ctx) })
}

// RetryWrong narrows the session to wrongly answered questions. retried is
// false when there was nothing to retry.
func (s *PracticeService) RetryWrong(ctx context.Context, sessionID string) (view SessionView, retried bool, err error) {
	view, err = s.navigate(sessionID, func(session *Session) error {
		retried, err = session.RetryWrong(ctx)
		return err
	})
	return view, retried, err
}

// Review re-opens a previously checked question without changing the session.
func (s *PracticeService) Review(_ context.Context, sessionID string, ref domain.QuestionRef) (ReviewView, bool, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return ReviewView{}, false, err
	}
	review, ok := session.Review(ref)
	return review, ok, nil
}

// Summary reports the recorded results of a session.
func (s *PracticeService) Summary(_ context.Context, sessionID string) (domain.Summary, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	return session.Summary(), nil
}

// ToggleFavorite flips the favorite status of the current question. The call to
// the favorite service happens in the background.
func (s *PracticeService) ToggleFavorite(_ context.Context, sessionID, folderID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	ref, _, ok := session.Current()
	if !ok {
		return domain.ErrSessionComplete
	}
	session.favorites.Toggle(FavoriteKeyOf(ref), folderID)
	return nil
}

// Folders lists the user's favorite folders; a failing folder service yields none.
func (s *PracticeService) Folders(ctx context.Context, userID string) []domain.FavoriteFolder {
	if s.favorites == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.favoriteTimeout)
	defer cancel()
	folders, err := s.favorites.ListFolders(ctx, userID)
	if err != nil {
		s.log.Warn("list favorite folders failed", "user_id", userID, "error", err)
		return nil
	}
	return folders
}

// Close discards the session once the practice run ends.
func (s *PracticeService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.favorites.Wait()
	s.sessions.Delete(sessionID)
	s.log.Debug("practice session closed", "session_id", sessionID)
}

// WaitFavorites blocks until background favorite calls of a session finish.
func (s *PracticeService) WaitFavorites(sessionID string) {
	if session, ok := s.sessions.Get(sessionID); ok {
		session.favorites.Wait()
	}
}

func (s *PracticeService) register(session *Session) {
	session.favorites = NewFavoriteTracker(s.favorites, session.UserID(), s.favoriteTimeout, s.log)
	s.sessions.Save(session)
}

func (s *PracticeService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *PracticeService) navigate(sessionID string, op func(*Session) error) (SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if err := op(session); err != nil {
		s.log.Warn("session navigation failed", "session_id", sessionID, "error", err)
		return SessionView{}, err
	}
	if ref, _, ok := session.Current(); ok {
		session.favorites.Refresh(FavoriteKeyOf(ref))
	}
	return s.view(session), nil
}

func (s *PracticeService) view(session *Session) SessionView {
	view := session.View()
	if view.Ref != nil {
		status := session.favorites.Status(FavoriteKeyOf(*view.Ref))
		view.Favorite = &status
	}
	return view
}
