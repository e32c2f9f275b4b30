package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lecture-quiz-service/internal/domain"
)

// FavoriteService stores favorite folders and marked questions in Postgres.
// Every failure is reported wrapped in domain.ErrExternalService.
type FavoriteService struct {
	pool *pgxpool.Pool
}

func NewFavoriteService(pool *pgxpool.Pool) *FavoriteService {
	return &FavoriteService{pool: pool}
}

func (s *FavoriteService) CreateFolder(ctx context.Context, userID, name string) (domain.FavoriteFolder, error) {
	folder := domain.FavoriteFolder{FolderID: uuid.NewString(), Name: name}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO favorite_folders (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		folder.FolderID, userID, name).Scan(&folder.CreatedAt)
	if err != nil {
		return domain.FavoriteFolder{}, external("create folder", err)
	}
	return folder, nil
}

func (s *FavoriteService) ListFolders(ctx context.Context, userID string) ([]domain.FavoriteFolder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at FROM favorite_folders
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, external("list folders", err)
	}
	defer rows.Close()

	var folders []domain.FavoriteFolder
	for rows.Next() {
		var folder domain.FavoriteFolder
		if err := rows.Scan(&folder.FolderID, &folder.Name, &folder.CreatedAt); err != nil {
			return nil, external("scan folder", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, external("list folders", err)
	}
	return folders, nil
}

func (s *FavoriteService) CheckStatus(ctx context.Context, userID string, key domain.FavoriteKey) (domain.FavoriteStatus, error) {
	status := domain.FavoriteStatus{FavoriteKey: key}
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM favorites
		WHERE user_id = $1 AND question_id = $2 AND question_index = $3`,
		userID, key.QuestionID, key.QuestionIndex).Scan(&status.FavoriteID)
	if errors.Is(err, pgx.ErrNoRows) {
		return status, nil
	}
	if err != nil {
		return domain.FavoriteStatus{}, external("check favorite", err)
	}
	status.IsFavorite = true
	return status, nil
}

func (s *FavoriteService) CheckMany(ctx context.Context, userID string, keys []domain.FavoriteKey) ([]domain.FavoriteStatus, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	setIDs := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, key := range keys {
		if !seen[key.QuestionID] {
			seen[key.QuestionID] = true
			setIDs = append(setIDs, key.QuestionID)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, question_id, question_index FROM favorites
		WHERE user_id = $1 AND question_id = ANY($2)`, userID, setIDs)
	if err != nil {
		return nil, external("check favorites", err)
	}
	defer rows.Close()

	found := make(map[domain.FavoriteKey]string)
	for rows.Next() {
		var (
			id  string
			key domain.FavoriteKey
		)
		if err := rows.Scan(&id, &key.QuestionID, &key.QuestionIndex); err != nil {
			return nil, external("scan favorite", err)
		}
		found[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, external("check favorites", err)
	}

	statuses := make([]domain.FavoriteStatus, 0, len(keys))
	for _, key := range keys {
		id, ok := found[key]
		statuses = append(statuses, domain.FavoriteStatus{FavoriteKey: key, IsFavorite: ok, FavoriteID: id})
	}
	return statuses, nil
}

// AddFavorite marks key in folderID; an existing mark moves to the new folder.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID, folderID string, key domain.FavoriteKey) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO favorites (id, user_id, folder_id, question_id, question_index)
		SELECT $1, $2, f.id, $4, $5 FROM favorite_folders f
		WHERE f.id = $3 AND f.user_id = $2
		ON CONFLICT (user_id, question_id, question_index) DO UPDATE
		SET folder_id = EXCLUDED.folder_id
		RETURNING id`,
		uuid.NewString(), userID, folderID, key.QuestionID, key.QuestionIndex).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: folder %s not found", domain.ErrExternalService, folderID)
	}
	if err != nil {
		return "", external("add favorite", err)
	}
	return id, nil
}

func (s *FavoriteService) RemoveFavorite(ctx context.Context, favoriteID, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1 AND user_id = $2`, favoriteID, userID); err != nil {
		return external("remove favorite", err)
	}
	return nil
}

func external(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrExternalService, op, err)
}
