package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lecture-quiz-service/internal/domain"
)

// PayloadLoader loads question set JSONB from Postgres.
type PayloadLoader struct {
	pool *pgxpool.Pool
}

func NewPayloadLoader(pool *pgxpool.Pool) *PayloadLoader {
	return &PayloadLoader{pool: pool}
}

func (l *PayloadLoader) LoadPayload(ctx context.Context, setID string) (domain.Payload, error) {
	payload := domain.Payload{ID: setID}
	err := l.pool.QueryRow(ctx, `SELECT display_type, payload FROM question_sets WHERE id=$1`, setID).
		Scan(&payload.DisplayType, &payload.Raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payload{}, fmt.Errorf("%w: %s", domain.ErrQuestionSetNotFound, setID)
	}
	if err != nil {
		return domain.Payload{}, fmt.Errorf("load question set: %w", err)
	}
	return payload, nil
}

// SavePayload inserts or replaces a question set payload.
func (l *PayloadLoader) SavePayload(ctx context.Context, payload domain.Payload) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO question_sets (id, display_type, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET display_type = EXCLUDED.display_type, payload = EXCLUDED.payload`,
		payload.ID, payload.DisplayType, payload.Raw)
	if err != nil {
		return fmt.Errorf("save question set: %w", err)
	}
	return nil
}
