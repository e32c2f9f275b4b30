package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/logger"
	"lecture-quiz-service/internal/quiz"
)

// PayloadLoader fetches encoded question sets from a backing store (e.g., Postgres).
type PayloadLoader interface {
	LoadPayload(ctx context.Context, setID string) (domain.Payload, error)
}

// QuestionSetRepository caches encoded payloads in Redis (hash per set) and
// falls back to a loader on cache miss. Payloads are decoded on every read so
// each caller gets its own canonical records.
//
//	HSET questionset:{setID} display_type {hint} payload {raw}
type QuestionSetRepository struct {
	client *redis.Client
	loader PayloadLoader
	ttl    time.Duration
	log    *logger.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionSetRepository(client *redis.Client, loader PayloadLoader, ttl time.Duration, log *logger.Logger) *QuestionSetRepository {
	return &QuestionSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionSetRepository) QuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	payload, err := r.payload(ctx, setID)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	set, err := quiz.Load(payload.Raw, payload.DisplayType)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	set.ID = setID
	return set, nil
}

func (r *QuestionSetRepository) payload(ctx context.Context, setID string) (domain.Payload, error) {
	key := r.key(setID)
	if payload, ok := r.cached(ctx, setID, key); ok {
		return payload, nil
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if payload, ok := r.cached(ctx, setID, key); ok {
			return payload, nil
		}

		payload, err := r.loader.LoadPayload(ctx, setID)
		if err != nil {
			return domain.Payload{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "display_type", payload.DisplayType, "payload", payload.Raw)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warn("cache question set payload failed", "set_id", setID, "error", err)
		}
		return payload, nil
	})
	if err != nil {
		return domain.Payload{}, err
	}
	return result.(domain.Payload), nil
}

func (r *QuestionSetRepository) cached(ctx context.Context, setID, key string) (domain.Payload, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Payload{}, false
	}
	raw, ok := fields["payload"]
	if !ok {
		return domain.Payload{}, false
	}
	return domain.Payload{ID: setID, DisplayType: fields["display_type"], Raw: []byte(raw)}, true
}

// Invalidate drops the cached payload of setID.
func (r *QuestionSetRepository) Invalidate(ctx context.Context, setID string) error {
	return r.client.Del(ctx, r.key(setID)).Err()
}

func (r *QuestionSetRepository) key(setID string) string {
	return "questionset:" + setID
}

func (r *QuestionSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
