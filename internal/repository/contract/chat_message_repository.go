package contract

import (
	"context"

	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChatMessageRepository is append-only from the application's point of
// view; messages are never edited after creation.
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteAllByChatId(ctx context.Context, chatId uuid.UUID) error
}
