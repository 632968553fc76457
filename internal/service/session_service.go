package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"agentmsa-be/internal/dto"
	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/pkg/logger"
	"agentmsa-be/internal/repository/memory"
	"agentmsa-be/pkg/events"
	pktNats "agentmsa-be/pkg/nats"
	"agentmsa-be/pkg/qa"
	"agentmsa-be/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrSessionBusy      = errors.New("a request is already in flight for this session")
	ErrAlreadyMigrated  = errors.New("session already migrated for this user")
	ErrNothingToMigrate = errors.New("no guest messages to migrate")
	ErrEmptyQuery       = errors.New("query must not be empty")
)

// ISessionService drives a conversation session through its lifecycle:
// guest accumulation, migration on sign-in, persisted operation, and the
// return to a fresh guest conversation.
type ISessionService interface {
	Ask(ctx context.Context, token string, userId *uuid.UUID, query string) (*dto.AskResponse, error)
	Migrate(ctx context.Context, token string, userId uuid.UUID) (*dto.MigrateResponse, error)
	SelectChat(ctx context.Context, token string, userId uuid.UUID, chatId uuid.UUID) (*dto.MessagesSnapshot, error)
	NewChat(token string) string
	DeleteChat(ctx context.Context, token string, userId uuid.UUID, chatId uuid.UUID) error
}

type sessionService struct {
	sessions       *memory.GuestSessionRepository
	store          ChatStore
	qaClient       qa.Client
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewSessionService(
	sessions *memory.GuestSessionRepository,
	store ChatStore,
	qaClient qa.Client,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		sessions:       sessions,
		store:          store,
		qaClient:       qaClient,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// Ask runs one send/receive round trip. For an authenticated caller it
// first settles the session's persistence state: pending guest messages
// migrate, and a fresh conversation gets its chat created from the query.
// The QA call itself runs outside the session lock.
func (s *sessionService) Ask(ctx context.Context, token string, userId *uuid.UUID, query string) (*dto.AskResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	sess := s.sessions.GetOrCreate(token)

	sess.Mu.Lock()
	if sess.Busy {
		sess.Mu.Unlock()
		return nil, ErrSessionBusy
	}
	sess.Busy = true
	sess.Mu.Unlock()

	defer func() {
		sess.Mu.Lock()
		sess.Busy = false
		sess.Mu.Unlock()
	}()

	sent := dto.MessageDTO{Role: entity.RoleUser, Content: query}

	sess.Mu.Lock()
	if userId != nil {
		// Guest history left over from before sign-in moves to the store
		// before anything new is written. Failure here is logged and the
		// round trip continues locally; migration will not retry for this
		// identity.
		if sess.CurrentChatId == nil && len(sess.Messages) > 0 && !sess.HasMigratedFor(*userId) {
			if _, err := s.migrateLocked(ctx, sess, *userId); err != nil {
				s.logger.Error("SessionService", "Auto-migration failed", map[string]interface{}{
					"user_id": *userId, "error": err.Error(),
				})
			}
		}

		if sess.CurrentChatId == nil {
			chat, err := s.store.CreateChat(ctx, *userId,
				utils.ChatTitle(query), utils.CreatePreview(query))
			if err != nil {
				// The conversation carries on locally; the reply is still
				// produced, it just is not persisted this round.
				s.logger.Error("SessionService", "Failed to create chat", map[string]interface{}{
					"user_id": *userId, "error": err.Error(),
				})
			} else {
				sess.Select(chat.Id)
				s.publishEvent(ctx, events.TypeChatCreated, map[string]interface{}{
					"chat_id": chat.Id,
					"user_id": *userId,
					"title":   chat.Title,
				})
			}
		}
	}

	s.record(ctx, sess, userId, entity.RoleUser, query, nil)
	chatId := sess.CurrentChatId
	sess.Mu.Unlock()

	reply := s.askQA(ctx, query)

	sess.Mu.Lock()
	s.record(ctx, sess, userId, entity.RoleAssistant, reply.Content, reply.Sources)
	sess.Mu.Unlock()

	return &dto.AskResponse{
		SessionToken: sess.Token,
		ChatId:       chatId,
		Sent:         &sent,
		Reply:        &reply,
	}, nil
}

// askQA degrades a failed QA round trip into an apology message rather
// than an error; the conversation always gets a reply.
func (s *sessionService) askQA(ctx context.Context, query string) dto.MessageDTO {
	answer, err := s.qaClient.Ask(ctx, query)
	if err != nil {
		s.logger.Error("SessionService", "QA request failed", map[string]interface{}{"error": err.Error()})
		return dto.MessageDTO{Role: entity.RoleAssistant, Content: qa.FallbackError}
	}
	return dto.MessageDTO{Role: entity.RoleAssistant, Content: answer.Content, Sources: answer.Sources}
}

// record writes one message to wherever the session currently lives: the
// store when a chat is selected, local session memory otherwise. Store
// failures are logged, not returned; a lost save must not break the
// visible conversation.
func (s *sessionService) record(ctx context.Context, sess *entity.GuestSession, userId *uuid.UUID, role, content string, sources []entity.Source) {
	if sess.CurrentChatId != nil && userId != nil {
		msg := &entity.ChatMessage{
			ChatId:  *sess.CurrentChatId,
			Role:    role,
			Content: content,
			Sources: sources,
		}
		if err := s.store.SaveMessage(ctx, *userId, msg); err != nil {
			s.logger.Error("SessionService", "Failed to save message", map[string]interface{}{
				"chat_id": *sess.CurrentChatId, "role": role, "error": err.Error(),
			})
		}
		return
	}

	if !sess.Append(entity.GuestMessage{Role: role, Content: content, Sources: sources}) {
		// A persisted session with no authenticated caller cannot hold
		// messages anywhere; fall back to a fresh guest conversation.
		sess.Reset()
		sess.Append(entity.GuestMessage{Role: role, Content: content, Sources: sources})
	}
}

// Migrate moves the session's guest messages into a new stored chat. It
// runs at most once per authenticated identity per session, even when the
// attempt fails partway.
func (s *sessionService) Migrate(ctx context.Context, token string, userId uuid.UUID) (*dto.MigrateResponse, error) {
	sess := s.sessions.GetOrCreate(token)

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	if sess.Busy {
		return nil, ErrSessionBusy
	}
	return s.migrateLocked(ctx, sess, userId)
}

func (s *sessionService) migrateLocked(ctx context.Context, sess *entity.GuestSession, userId uuid.UUID) (*dto.MigrateResponse, error) {
	if sess.HasMigratedFor(userId) {
		return nil, ErrAlreadyMigrated
	}
	if len(sess.Messages) == 0 {
		return nil, ErrNothingToMigrate
	}

	// Marked before the attempt: a failed migration does not retry on the
	// next request, which would risk duplicating messages.
	id := userId
	sess.MigratedFor = &id

	title := utils.ChatTitle(sess.Messages[0].Content)
	chat, err := s.store.CreateChat(ctx, userId, title, title)
	if err != nil {
		return nil, err
	}

	// Appends run concurrently. Every message carries the same migration
	// instant as its timestamp, so the canonical created_at, seq read
	// order reduces to seq alone for the batch and commit timing cannot
	// reorder the conversation.
	migratedAt := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for i, gm := range sess.Messages {
		wg.Add(1)
		go func(seq int, gm entity.GuestMessage) {
			defer wg.Done()
			msg := &entity.ChatMessage{
				ChatId:    chat.Id,
				Role:      gm.Role,
				Content:   gm.Content,
				Sources:   gm.Sources,
				Seq:       seq,
				CreatedAt: migratedAt,
			}
			if err := s.store.AppendMessage(ctx, userId, msg); err != nil {
				s.logger.Error("SessionService", "Failed to migrate message", map[string]interface{}{
					"chat_id": chat.Id, "seq": seq, "error": err.Error(),
				})
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i+1, gm)
	}
	wg.Wait()

	count := len(sess.Messages) - failed
	sess.Select(chat.Id)

	s.publishEvent(ctx, events.TypeChatMigrated, map[string]interface{}{
		"chat_id":       chat.Id,
		"user_id":       userId,
		"message_count": count,
	})

	s.logger.Info("SessionService", "Guest conversation migrated", map[string]interface{}{
		"chat_id": chat.Id, "user_id": userId, "migrated": count, "failed": failed,
	})

	return &dto.MigrateResponse{
		ChatId:       chat.Id,
		Title:        title,
		MessageCount: count,
	}, nil
}

// SelectChat pivots the session onto a stored chat and returns its full
// history. Local guest messages are dropped; the store is authoritative
// from here on.
func (s *sessionService) SelectChat(ctx context.Context, token string, userId uuid.UUID, chatId uuid.UUID) (*dto.MessagesSnapshot, error) {
	sess := s.sessions.GetOrCreate(token)

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	if sess.Busy {
		return nil, ErrSessionBusy
	}

	msgs, err := s.store.ListMessages(ctx, userId, chatId)
	if err != nil {
		return nil, err
	}

	sess.Select(chatId)

	snapshot := &dto.MessagesSnapshot{
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
	return snapshot, nil
}

// NewChat resets the session to an empty guest conversation and returns
// the session token, minting one when the caller had none.
func (s *sessionService) NewChat(token string) string {
	sess := s.sessions.GetOrCreate(token)

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	sess.Reset()
	return sess.Token
}

// DeleteChat removes a stored chat; when it is the session's current chat
// the session falls back to a fresh guest conversation.
func (s *sessionService) DeleteChat(ctx context.Context, token string, userId uuid.UUID, chatId uuid.UUID) error {
	if err := s.store.DeleteChat(ctx, userId, chatId); err != nil {
		return err
	}

	s.publishEvent(ctx, events.TypeChatDeleted, map[string]interface{}{
		"chat_id": chatId,
		"user_id": userId,
	})

	if sess, ok := s.sessions.Get(token); ok {
		sess.Mu.Lock()
		if sess.CurrentChatId != nil && *sess.CurrentChatId == chatId {
			sess.Reset()
		}
		sess.Mu.Unlock()
	}
	return nil
}

func (s *sessionService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	// Events feed auxiliary consumers; failures are logged, not surfaced.
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("SessionService", "Failed to publish event", map[string]interface{}{
			"type": eventType, "error": err.Error(),
		})
	}
}
