package service

import (
	"context"
	"errors"
	"fmt"

	"agentmsa-be/internal/dto"
	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/pkg/logger"
	"agentmsa-be/internal/repository/specification"
	"agentmsa-be/internal/repository/unitofwork"
	"agentmsa-be/pkg/utils"

	"github.com/google/uuid"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatStore is the capability set the session controller needs from the
// document store: create, append, touch, and ordered reads. Injected so
// tests can substitute a fake.
type ChatStore interface {
	CreateChat(ctx context.Context, userId uuid.UUID, title, preview string) (*entity.Chat, error)
	// AppendMessage is the raw append primitive; migration uses it so the
	// chat's preview stays the migration title.
	AppendMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error
	// SaveMessage appends and bumps the chat's preview and updated_at,
	// the normal path for a sent or received message.
	SaveMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error
	ListChats(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error)
	ListMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]*entity.ChatMessage, error)
	GetChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*entity.Chat, error)
	DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
}

type chatStore struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	logger     logger.ILogger
}

func NewChatStore(uowFactory unitofwork.RepositoryFactory, publisher IPublisherService, log logger.ILogger) ChatStore {
	return &chatStore{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     log,
	}
}

func (s *chatStore) notify(ctx context.Context, userId uuid.UUID, chatId *uuid.UUID) {
	payload := dto.ChatChangedMessage{UserId: userId, ChatId: chatId}
	if err := s.publisher.PublishChatChanged(ctx, payload); err != nil {
		s.logger.Warn("ChatStore", "Failed to publish chat change", map[string]interface{}{"error": err.Error()})
	}
}

func (s *chatStore) CreateChat(ctx context.Context, userId uuid.UUID, title, preview string) (*entity.Chat, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat := &entity.Chat{
		Id:      uuid.New(),
		UserId:  userId,
		Title:   title,
		Preview: preview,
	}
	if err := uow.ChatRepository().Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	s.notify(ctx, userId, &chat.Id)
	return chat, nil
}

func (s *chatStore) AppendMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	s.notify(ctx, userId, &msg.ChatId)
	return nil
}

func (s *chatStore) SaveMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: msg.ChatId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}

	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if err := uow.ChatRepository().Touch(ctx, msg.ChatId, utils.MessagePreview(msg.Content)); err != nil {
		// The message is saved; a stale preview is not worth failing the
		// request over.
		s.logger.Warn("ChatStore", "Failed to touch chat", map[string]interface{}{
			"chat_id": msg.ChatId, "error": err.Error(),
		})
	}

	s.notify(ctx, userId, &msg.ChatId)
	return nil
}

func (s *chatStore) ListChats(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatRepository().FindAll(ctx,
		specification.OwnedBy{UserID: userId},
		specification.ChatListOrder{},
	)
}

func (s *chatStore) ListMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]*entity.ChatMessage, error) {
	chat, err := s.GetChat(ctx, userId, chatId)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.MessageOrder{},
	)
}

func (s *chatStore) GetChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*entity.Chat, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{UserID: userId},
	)
}

func (s *chatStore) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteAllByChatId(ctx, chatId); err != nil {
		return err
	}
	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.notify(ctx, userId, nil)
	return nil
}
