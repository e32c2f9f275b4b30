package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lecture-quiz-service/internal/domain"
)

// FavoriteService is an in-memory implementation of app.FavoriteService.
type FavoriteService struct {
	mu        sync.RWMutex
	clock     func() time.Time
	folders   map[string]folderRecord
	favorites map[string]favoriteRecord
	byKey     map[userKey]string
}

type folderRecord struct {
	userID string
	folder domain.FavoriteFolder
}

type favoriteRecord struct {
	userID   string
	folderID string
	key      domain.FavoriteKey
}

type userKey struct {
	userID string
	key    domain.FavoriteKey
}

func NewFavoriteService() *FavoriteService {
	return &FavoriteService{
		clock:     time.Now,
		folders:   make(map[string]folderRecord),
		favorites: make(map[string]favoriteRecord),
		byKey:     make(map[userKey]string),
	}
}

// CreateFolder adds a folder for userID and returns it.
func (s *FavoriteService) CreateFolder(_ context.Context, userID, name string) (domain.FavoriteFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder := domain.FavoriteFolder{FolderID: uuid.NewString(), Name: name, CreatedAt: s.clock()}
	s.folders[folder.FolderID] = folderRecord{userID: userID, folder: folder}
	return folder, nil
}

func (s *FavoriteService) ListFolders(_ context.Context, userID string) ([]domain.FavoriteFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FavoriteFolder
	for _, rec := range s.folders {
		if rec.userID == userID {
			out = append(out, rec.folder)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *FavoriteService) CheckStatus(_ context.Context, userID string, key domain.FavoriteKey) (domain.FavoriteStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(userID, key), nil
}

func (s *FavoriteService) CheckMany(_ context.Context, userID string, keys []domain.FavoriteKey) ([]domain.FavoriteStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FavoriteStatus, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.statusLocked(userID, key))
	}
	return out, nil
}

func (s *FavoriteService) AddFavorite(_ context.Context, userID, folderID string, key domain.FavoriteKey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder, ok := s.folders[folderID]
	if !ok || folder.userID != userID {
		return "", fmt.Errorf("folder %s: %w", folderID, domain.ErrExternalService)
	}
	uk := userKey{userID: userID, key: key}
	if id, ok := s.byKey[uk]; ok {
		rec := s.favorites[id]
		rec.folderID = folderID
		s.favorites[id] = rec
		return id, nil
	}
	id := uuid.NewString()
	s.favorites[id] = favoriteRecord{userID: userID, folderID: folderID, key: key}
	s.byKey[uk] = id
	return id, nil
}

func (s *FavoriteService) RemoveFavorite(_ context.Context, favoriteID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.favorites[favoriteID]
	if !ok || rec.userID != userID {
		return nil
	}
	delete(s.favorites, favoriteID)
	delete(s.byKey, userKey{userID: userID, key: rec.key})
	return nil
}

// FolderContents lists the questions filed under folderID, sorted by set and index.
func (s *FavoriteService) FolderContents(_ context.Context, userID, folderID string) []domain.QuestionRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []domain.QuestionRef
	for _, rec := range s.favorites {
		if rec.userID == userID && rec.folderID == folderID {
			refs = append(refs, domain.QuestionRef{SetID: rec.key.QuestionID, Index: rec.key.QuestionIndex})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SetID != refs[j].SetID {
			return refs[i].SetID < refs[j].SetID
		}
		return refs[i].Index < refs[j].Index
	})
	return refs
}

func (s *FavoriteService) statusLocked(userID string, key domain.FavoriteKey) domain.FavoriteStatus {
	status := domain.FavoriteStatus{FavoriteKey: key}
	if id, ok := s.byKey[userKey{userID: userID, key: key}]; ok {
		status.IsFavorite = true
		status.FavoriteID = id
	}
	return status
}
