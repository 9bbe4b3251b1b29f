package outbox_repo

import (
	"context"

	"skoolstore/internal/domain"
)

type OutboxRepository interface {
	CreateMessage(ctx context.Context, msg *domain.OutboxMessage) error
	GetUnsentMessages(ctx context.Context) ([]*domain.OutboxMessage, error)
	MarkMessageSent(ctx context.Context, id string) error
}
