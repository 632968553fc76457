package service

import (
	"context"
	"encoding/json"

	"agentmsa-be/internal/dto"
	"agentmsa-be/internal/pkg/logger"
	"agentmsa-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IStreamService turns store writes into live snapshot pushes. It
// consumes the chat-change feed and re-queries full snapshots for the
// affected user, so clients always replace state wholesale instead of
// patching deltas.
type IStreamService interface {
	Consume(ctx context.Context) error
	PushChatList(ctx context.Context, userId uuid.UUID)
	PushMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID)
}

type streamService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	store     ChatStore
	hub       *websocket.Hub
	logger    logger.ILogger
}

func NewStreamService(
	pubSub *gochannel.GoChannel,
	topicName string,
	store ChatStore,
	hub *websocket.Hub,
	log logger.ILogger,
) IStreamService {
	return &streamService{
		pubSub:    pubSub,
		topicName: topicName,
		store:     store,
		hub:       hub,
		logger:    log,
	}
}

func (ss *streamService) Consume(ctx context.Context) error {
	messages, err := ss.pubSub.Subscribe(ctx, ss.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ss.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ss *streamService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ChatChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ss.logger.Error("StreamService", "Failed to unmarshal chat change", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	// No connection, no work: snapshots are re-queried on ws connect
	// anyway, so an offline user misses nothing.
	if ss.hub.HasClients(payload.UserId) {
		ss.PushChatList(ctx, payload.UserId)
		if payload.ChatId != nil {
			ss.PushMessages(ctx, payload.UserId, *payload.ChatId)
		}
	}

	msg.Ack()
}

// PushChatList sends the user's full chat list, newest activity first.
func (ss *streamService) PushChatList(ctx context.Context, userId uuid.UUID) {
	chats, err := ss.store.ListChats(ctx, userId)
	if err != nil {
		ss.logger.Error("StreamService", "Failed to load chat list", map[string]interface{}{
			"user_id": userId, "error": err.Error(),
		})
		return
	}

	snapshot := dto.ChatListSnapshot{Chats: make([]dto.ChatSummaryResponse, 0, len(chats))}
	for _, c := range chats {
		snapshot.Chats = append(snapshot.Chats, dto.ChatSummaryResponse{
			Id:        c.Id,
			Title:     c.Title,
			Preview:   c.Preview,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}

	ss.hub.Send(userId, websocket.Envelope{Type: "chat_list", Data: snapshot})
}

// PushMessages sends the full ordered history of one chat.
func (ss *streamService) PushMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) {
	msgs, err := ss.store.ListMessages(ctx, userId, chatId)
	if err != nil {
		ss.logger.Error("StreamService", "Failed to load messages", map[string]interface{}{
			"user_id": userId, "chat_id": chatId, "error": err.Error(),
		})
		return
	}

	snapshot := dto.MessagesSnapshot{
		ChatId:   chatId,
		Messages: make([]dto.MessageDTO, 0, len(msgs)),
	}
	for _, m := range msgs {
		m := m
		snapshot.Messages = append(snapshot.Messages, dto.MessageDTO{
			Id:        &m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Sources:   m.Sources,
			CreatedAt: &m.CreatedAt,
		})
	}

	ss.hub.Send(userId, websocket.Envelope{Type: "chat_messages", Data: snapshot})
}
