package app

import (
	"context"
	"sync"
	"time"

	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/logger"
)

// FavoriteService is the external favorite-status and folder service.
type FavoriteService interface {
	CheckStatus(ctx context.Context, userID string, key domain.FavoriteKey) (domain.FavoriteStatus, error)
	CheckMany(ctx context.Context, userID string, keys []domain.FavoriteKey) ([]domain.FavoriteStatus, error)
	AddFavorite(ctx context.Context, userID, folderID string, key domain.FavoriteKey) (string, error)
	RemoveFavorite(ctx context.Context, favoriteID, userID string) error
	ListFolders(ctx context.Context, userID string) ([]domain.FavoriteFolder, error)
}

// FavoriteKeyOf maps a question's origin identity to the favorite services' key.
func FavoriteKeyOf(ref domain.QuestionRef) domain.FavoriteKey {
	return domain.FavoriteKey{QuestionID: ref.SetID, QuestionIndex: ref.Index}
}

// FavoriteTracker caches favorite status for one user's session. Lookups and
// toggles run in the background and never block session navigation; a failed
// call leaves the key uncached, which reads as "not favorited".
type FavoriteTracker struct {
	service FavoriteService
	userID  string
	timeout time.Duration
	log     *logger.Logger

	mu       sync.RWMutex
	statuses map[domain.FavoriteKey]domain.FavoriteStatus
	versions map[domain.FavoriteKey]uint64
	toggles  map[domain.FavoriteKey]*toggleCall

	wg sync.WaitGroup
}

func NewFavoriteTracker(service FavoriteService, userID string, timeout time.Duration, log *logger.Logger) *FavoriteTracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FavoriteTracker{
		service:  service,
		userID:   userID,
		timeout:  timeout,
		log:      log,
		statuses: make(map[domain.FavoriteKey]domain.FavoriteStatus),
		versions: make(map[domain.FavoriteKey]uint64),
		toggles:  make(map[domain.FavoriteKey]*toggleCall),
	}
}

// toggleCall is one in-flight toggle; the next toggle of the same key waits on done.
type toggleCall struct {
	done   chan struct{}
	status domain.FavoriteStatus
	ok     bool
}

// Status returns the cached status of key.
func (t *FavoriteTracker) Status(key domain.FavoriteKey) domain.FavoriteStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if status, ok := t.statuses[key]; ok {
		return status
	}
	return domain.FavoriteStatus{FavoriteKey: key}
}

// Refresh re-reads the status of key in the background.
func (t *FavoriteTracker) Refresh(key domain.FavoriteKey) {
	if t.service == nil || t.toggling(key) {
		return
	}
	version := t.version(key)
	t.run(func(ctx context.Context) {
		status, err := t.service.CheckStatus(ctx, t.userID, key)
		if err != nil {
			t.log.Warn("favorite status lookup failed", "user_id", t.userID, "question_id", key.QuestionID, "question_index", key.QuestionIndex, "error", err)
			t.forget(key, version)
			return
		}
		status.FavoriteKey = key
		t.store(status, version)
	})
}

// Prefetch loads the status of many keys with one batched call.
func (t *FavoriteTracker) Prefetch(keys []domain.FavoriteKey) {
	if t.service == nil || len(keys) == 0 {
		return
	}
	keys = append([]domain.FavoriteKey(nil), keys...)
	versions := make(map[domain.FavoriteKey]uint64, len(keys))
	for _, key := range keys {
		versions[key] = t.version(key)
	}
	t.run(func(ctx context.Context) {
		statuses, err := t.service.CheckMany(ctx, t.userID, keys)
		if err != nil {
			t.log.Warn("favorite batch lookup failed", "user_id", t.userID, "keys", len(keys), "error", err)
			return
		}
		for _, status := range statuses {
			if version, ok := versions[status.FavoriteKey]; ok {
				t.store(status, version)
			}
		}
	})
}

// Toggle flips the favorite status of key. The cache shows the intended status
// at once, so a second toggle flips the pending intent rather than the last
// confirmed status. Toggles of one key reach the service in call order, and a
// failed call restores the last known status.
func (t *FavoriteTracker) Toggle(key domain.FavoriteKey, folderID string) {
	if t.service == nil {
		return
	}

	t.mu.Lock()
	previous, cached := t.statuses[key]
	want := !previous.IsFavorite
	t.statuses[key] = domain.FavoriteStatus{FavoriteKey: key, IsFavorite: want, FavoriteID: previous.FavoriteID}
	t.versions[key]++
	version := t.versions[key]
	before := t.toggles[key]
	call := &toggleCall{done: make(chan struct{})}
	t.toggles[key] = call
	t.mu.Unlock()

	var wait <-chan struct{}
	if before != nil {
		wait = before.done
	}
	t.runAfter(wait, func(ctx context.Context) {
		defer t.finishToggle(key, call)
		shown, known := previous, cached
		if before != nil && before.ok {
			shown, known = before.status, true
		}

		status, err := t.apply(ctx, key, folderID, want, shown.FavoriteID)
		if err != nil {
			t.log.Warn("toggle favorite failed", "user_id", t.userID, "folder_id", folderID, "question_id", key.QuestionID, "question_index", key.QuestionIndex, "error", err)
			t.restore(key, shown, known, version)
			return
		}
		call.status, call.ok = status, true
		t.store(status, version)
	})
}

// apply moves the service to the wanted status of key.
func (t *FavoriteTracker) apply(ctx context.Context, key domain.FavoriteKey, folderID string, want bool, favoriteID string) (domain.FavoriteStatus, error) {
	if want {
		id, err := t.service.AddFavorite(ctx, t.userID, folderID, key)
		if err != nil {
			return domain.FavoriteStatus{}, err
		}
		return domain.FavoriteStatus{FavoriteKey: key, IsFavorite: true, FavoriteID: id}, nil
	}
	if favoriteID == "" {
		current, err := t.service.CheckStatus(ctx, t.userID, key)
		if err != nil {
			return domain.FavoriteStatus{}, err
		}
		favoriteID = current.FavoriteID
	}
	if favoriteID != "" {
		if err := t.service.RemoveFavorite(ctx, favoriteID, t.userID); err != nil {
			return domain.FavoriteStatus{}, err
		}
	}
	return domain.FavoriteStatus{FavoriteKey: key}, nil
}

func (t *FavoriteTracker) finishToggle(key domain.FavoriteKey, call *toggleCall) {
	t.mu.Lock()
	if t.toggles[key] == call {
		delete(t.toggles, key)
	}
	t.mu.Unlock()
	close(call.done)
}

func (t *FavoriteTracker) toggling(key domain.FavoriteKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.toggles[key] != nil
}

// restore puts back the last known status after a failed toggle.
func (t *FavoriteTracker) restore(key domain.FavoriteKey, previous domain.FavoriteStatus, cached bool, version uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.versions[key] != version {
		return
	}
	if cached {
		t.statuses[key] = previous
		return
	}
	delete(t.statuses, key)
}

// Wait blocks until every background call has finished.
func (t *FavoriteTracker) Wait() {
	t.wg.Wait()
}

func (t *FavoriteTracker) run(fn func(ctx context.Context)) {
	t.runAfter(nil, fn)
}

// runAfter starts fn once wait is closed; the call timeout starts after the wait.
func (t *FavoriteTracker) runAfter(wait <-chan struct{}, fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if wait != nil {
			<-wait
		}
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (t *FavoriteTracker) version(key domain.FavoriteKey) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.versions[key]
}

// store keeps status unless a later toggle has superseded the call that produced it.
func (t *FavoriteTracker) store(status domain.FavoriteStatus, version uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.versions[status.FavoriteKey] != version {
		return
	}
	t.statuses[status.FavoriteKey] = status
}

func (t *FavoriteTracker) forget(key domain.FavoriteKey, version uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.versions[key] != version {
		return
	}
	delete(t.statuses, key)
}
