package postgres

import (
	"context"
	"time"

	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/usecase"
)

// NullOutboxRepository drops every event. The server uses it when no event
// publisher is configured, so compliance findings are only audited.
type NullOutboxRepository struct{}

// NewNullOutboxRepository creates a new NullOutboxRepository.
func NewNullOutboxRepository() *NullOutboxRepository {
	return &NullOutboxRepository{}
}

func (r *NullOutboxRepository) Create(_ context.Context, _ usecase.Tx, _ *domain.OutboxEvent) error {
	return nil
}

func (r *NullOutboxRepository) GetUnpublished(_ context.Context, _ int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (r *NullOutboxRepository) MarkPublished(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (r *NullOutboxRepository) DeletePublished(_ context.Context, _ time.Time) error {
	return nil
}
