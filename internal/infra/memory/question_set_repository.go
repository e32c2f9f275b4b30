package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/quiz"
)

// PayloadLoader fetches encoded question sets from a backing store (e.g., Postgres).
type PayloadLoader interface {
	LoadPayload(ctx context.Context, setID string) (domain.Payload, error)
}

// QuestionSetRepository caches decoded question sets with TTL to avoid repeated DB hits.
type QuestionSetRepository struct {
	loader PayloadLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionSetRepository(loader PayloadLoader, ttl time.Duration) *QuestionSetRepository {
	return &QuestionSetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionSetRepository) QuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	if set, ok := r.cached(setID); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		if set, ok := r.cached(setID); ok {
			return set, nil
		}

		payload, err := r.loader.LoadPayload(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		set, err := quiz.Load(payload.Raw, payload.DisplayType)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		set.ID = setID

		r.mu.Lock()
		r.cache[setID] = cachedSet{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionSetRepository) cached(setID string) (domain.QuestionSet, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
		return entry.set, true
	}
	return domain.QuestionSet{}, false
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPayloadLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticPayloadLoader struct {
	payloads map[string]domain.Payload
}

func NewStaticPayloadLoader(payloads map[string]domain.Payload) *StaticPayloadLoader {
	return &StaticPayloadLoader{payloads: payloads}
}

func (l *StaticPayloadLoader) LoadPayload(_ context.Context, setID string) (domain.Payload, error) {
	if payload, ok := l.payloads[setID]; ok {
		return payload, nil
	}
	return domain.Payload{}, domain.ErrQuestionSetNotFound
}
