package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/repository/memory"
	"agentmsa-be/pkg/qa"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// fakeStore is an in-memory ChatStore standing in for the database-backed
// implementation.
type fakeStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*entity.Chat
	messages map[uuid.UUID][]*entity.ChatMessage

	failCreateChat bool
	failAppend     bool
	failSave       bool

	// appendHook runs before an append commits, letting a test skew the
	// commit timing of individual messages.
	appendHook func(*entity.ChatMessage)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chats:    make(map[uuid.UUID]*entity.Chat),
		messages: make(map[uuid.UUID][]*entity.ChatMessage),
	}
}

func (f *fakeStore) CreateChat(ctx context.Context, userId uuid.UUID, title, preview string) (*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateChat {
		return nil, errors.New("create failed")
	}
	chat := &entity.Chat{Id: uuid.New(), UserId: userId, Title: title, Preview: preview}
	f.chats[chat.Id] = chat
	return chat, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error {
	if f.appendHook != nil {
		f.appendHook(msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return errors.New("append failed")
	}
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages[msg.ChatId] = append(f.messages[msg.ChatId], msg)
	return nil
}

func (f *fakeStore) SaveMessage(ctx context.Context, userId uuid.UUID, msg *entity.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("save failed")
	}
	chat, ok := f.chats[msg.ChatId]
	if !ok || chat.UserId != userId {
		return ErrChatNotFound
	}
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages[msg.ChatId] = append(f.messages[msg.ChatId], msg)
	chat.Preview = msg.Content
	return nil
}

func (f *fakeStore) ListChats(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Chat
	for _, c := range f.chats {
		if c.UserId == userId {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatId]
	if !ok || chat.UserId != userId {
		return nil, ErrChatNotFound
	}
	msgs := append([]*entity.ChatMessage(nil), f.messages[chatId]...)
	// Same order as the database read: created_at first, seq as tiebreaker.
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
	return msgs, nil
}

func (f *fakeStore) GetChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*entity.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatId]
	if !ok || chat.UserId != userId {
		return nil, nil
	}
	return chat, nil
}

func (f *fakeStore) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatId]
	if !ok || chat.UserId != userId {
		return ErrChatNotFound
	}
	delete(f.chats, chatId)
	delete(f.messages, chatId)
	return nil
}

type fakeQA struct {
	answer *qa.Answer
	err    error
	calls  int
}

func (f *fakeQA) Ask(ctx context.Context, query string) (*qa.Answer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &qa.Answer{Kind: qa.KindSynthesis, Content: "answer to: " + query, Sources: []entity.Source{}}, nil
}

func newTestService(store ChatStore, qaClient qa.Client) (ISessionService, *memory.GuestSessionRepository) {
	sessions := memory.NewGuestSessionRepository()
	svc := NewSessionService(sessions, store, qaClient, nil, nopLogger{})
	return svc, sessions
}

func TestAskRejectsBlankQuery(t *testing.T) {
	store := newFakeStore()
	qaClient := &fakeQA{}
	svc, sessions := newTestService(store, qaClient)

	for _, query := range []string{"", "   ", "\n\t "} {
		res, err := svc.Ask(context.Background(), "", nil, query)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.Nil(t, res)
	}

	// Rejected before any side effect: no QA call, no session, no chat.
	assert.Equal(t, 0, qaClient.calls)
	assert.Empty(t, store.chats)
	_, ok := sessions.Get("")
	assert.False(t, ok)
}

func TestGuestAskStaysLocal(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})

	res, err := svc.Ask(context.Background(), "", nil, "what is gorm?")
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionToken)
	assert.Nil(t, res.ChatId)
	assert.Equal(t, entity.RoleUser, res.Sent.Role)
	assert.Equal(t, entity.RoleAssistant, res.Reply.Role)

	sess, ok := sessions.Get(res.SessionToken)
	require.True(t, ok)
	assert.Equal(t, entity.ModeGuest, sess.Mode)
	assert.Len(t, sess.Messages, 2)
	assert.Empty(t, store.chats)
	assert.False(t, sess.Busy)
}

func TestGuestAskReusesToken(t *testing.T) {
	svc, sessions := newTestService(newFakeStore(), &fakeQA{})

	first, err := svc.Ask(context.Background(), "", nil, "one")
	require.NoError(t, err)
	second, err := svc.Ask(context.Background(), first.SessionToken, nil, "two")
	require.NoError(t, err)

	assert.Equal(t, first.SessionToken, second.SessionToken)
	sess, _ := sessions.Get(first.SessionToken)
	assert.Len(t, sess.Messages, 4)
}

func TestAuthedFirstAskCreatesChat(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	res, err := svc.Ask(context.Background(), "", &userId, "how does the unit of work pattern help with transactions?")
	require.NoError(t, err)
	require.NotNil(t, res.ChatId)

	chat := store.chats[*res.ChatId]
	require.NotNil(t, chat)
	assert.Equal(t, "how does the unit of work patt...", chat.Title)

	msgs, err := store.ListMessages(context.Background(), userId, *res.ChatId)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)

	sess, _ := sessions.Get(res.SessionToken)
	assert.Equal(t, entity.ModePersisted, sess.Mode)
	assert.Empty(t, sess.Messages)
}

func TestAuthedAskContinuesWhenChatCreateFails(t *testing.T) {
	store := newFakeStore()
	store.failCreateChat = true
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	res, err := svc.Ask(context.Background(), "", &userId, "hello")
	require.NoError(t, err)

	// The round trip completed locally; nothing was persisted.
	assert.Nil(t, res.ChatId)
	assert.NotNil(t, res.Reply)
	sess, _ := sessions.Get(res.SessionToken)
	assert.Len(t, sess.Messages, 2)
}

func TestQAFailureProducesApology(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQA{err: errors.New("timeout")})
	userId := uuid.New()

	res, err := svc.Ask(context.Background(), "", &userId, "will this fail?")
	require.NoError(t, err)
	require.NotNil(t, res.Reply)
	assert.Equal(t, qa.FallbackError, res.Reply.Content)

	// The apology is persisted like any other reply.
	require.NotNil(t, res.ChatId)
	msgs, _ := store.ListMessages(context.Background(), userId, *res.ChatId)
	require.Len(t, msgs, 2)
	assert.Equal(t, qa.FallbackError, msgs[1].Content)
}

func seedGuestSession(svc ISessionService, qaCalls int) (string, error) {
	token := ""
	for i := 0; i < qaCalls; i++ {
		res, err := svc.Ask(context.Background(), token, nil, "guest question")
		if err != nil {
			return "", err
		}
		token = res.SessionToken
	}
	return token, nil
}

func TestMigrateMovesGuestMessages(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	token, err := seedGuestSession(svc, 3)
	require.NoError(t, err)

	res, err := svc.Migrate(context.Background(), token, userId)
	require.NoError(t, err)
	assert.Equal(t, 6, res.MessageCount)

	chat := store.chats[res.ChatId]
	require.NotNil(t, chat)
	// Migration keeps the title as the preview.
	assert.Equal(t, chat.Title, chat.Preview)
	assert.Equal(t, "guest question", chat.Title)

	msgs, err := store.ListMessages(context.Background(), userId, res.ChatId)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Seq)
	}
	// User/assistant alternation survives the concurrent writes.
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, entity.RoleUser, m.Role)
		} else {
			assert.Equal(t, entity.RoleAssistant, m.Role)
		}
	}

	sess, _ := sessions.Get(token)
	assert.Equal(t, entity.ModePersisted, sess.Mode)
	require.NotNil(t, sess.CurrentChatId)
	assert.Equal(t, res.ChatId, *sess.CurrentChatId)
	assert.Empty(t, sess.Messages)
}

func TestMigrateKeepsOrderWhenCommitsFinishOutOfOrder(t *testing.T) {
	store := newFakeStore()
	// The first message commits last; with per-message timestamps it
	// would read back at the end of the conversation.
	store.appendHook = func(msg *entity.ChatMessage) {
		if msg.Seq == 1 {
			time.Sleep(80 * time.Millisecond)
		}
	}
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	sess := sessions.GetOrCreate("")
	for _, content := range []string{"first", "second", "third"} {
		require.True(t, sess.Append(entity.GuestMessage{Role: entity.RoleUser, Content: content}))
	}

	res, err := svc.Migrate(context.Background(), sess.Token, userId)
	require.NoError(t, err)
	assert.Equal(t, 3, res.MessageCount)

	msgs, err := store.ListMessages(context.Background(), userId, res.ChatId)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, msgs[i].Content)
		assert.Equal(t, i+1, msgs[i].Seq)
	}
	// The whole batch carries the migration instant, so seq alone decides.
	assert.True(t, msgs[1].CreatedAt.Equal(msgs[0].CreatedAt))
	assert.True(t, msgs[2].CreatedAt.Equal(msgs[0].CreatedAt))
}

func TestMigrateIsOneShotPerIdentity(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	token, err := seedGuestSession(svc, 1)
	require.NoError(t, err)

	_, err = svc.Migrate(context.Background(), token, userId)
	require.NoError(t, err)

	_, err = svc.Migrate(context.Background(), token, userId)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)

	// Starting a new conversation clears the marker.
	svc.NewChat(token)
	sess, _ := sessions.Get(token)
	assert.Nil(t, sess.MigratedFor)
}

func TestMigrateDoesNotRetryAfterFailure(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQA{})
	userId := uuid.New()

	token, err := seedGuestSession(svc, 1)
	require.NoError(t, err)

	store.failCreateChat = true
	_, err = svc.Migrate(context.Background(), token, userId)
	require.Error(t, err)

	// A second attempt for the same identity is refused even though the
	// first one failed; retrying could duplicate messages.
	store.failCreateChat = false
	_, err = svc.Migrate(context.Background(), token, userId)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)
}

func TestMigrateFlagIsPerIdentity(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	first := uuid.New()
	second := uuid.New()

	token, err := seedGuestSession(svc, 1)
	require.NoError(t, err)

	_, err = svc.Migrate(context.Background(), token, first)
	require.NoError(t, err)

	// Back to guest mode with fresh local messages.
	svc.NewChat(token)
	_, err = svc.Ask(context.Background(), token, nil, "after logout")
	require.NoError(t, err)

	// A different identity gets its own migration.
	res, err := svc.Migrate(context.Background(), token, second)
	require.NoError(t, err)
	assert.Equal(t, second, store.chats[res.ChatId].UserId)

	sess, _ := sessions.Get(token)
	assert.True(t, sess.HasMigratedFor(second))
	assert.False(t, sess.HasMigratedFor(first))
}

func TestMigrateWithNothingPending(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), &fakeQA{})
	userId := uuid.New()

	token := svc.NewChat("")
	_, err := svc.Migrate(context.Background(), token, userId)
	assert.ErrorIs(t, err, ErrNothingToMigrate)
}

func TestAskAutoMigratesPendingGuestHistory(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	token, err := seedGuestSession(svc, 2)
	require.NoError(t, err)

	// First authenticated request settles the guest history before the
	// new round trip runs.
	res, err := svc.Ask(context.Background(), token, &userId, "and now signed in")
	require.NoError(t, err)
	require.NotNil(t, res.ChatId)

	msgs, err := store.ListMessages(context.Background(), userId, *res.ChatId)
	require.NoError(t, err)
	// 4 migrated + the new pair
	assert.Len(t, msgs, 6)

	sess, _ := sessions.Get(token)
	assert.True(t, sess.HasMigratedFor(userId))
}

func TestSelectChatReturnsHistory(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	first, err := svc.Ask(context.Background(), "", &userId, "first conversation")
	require.NoError(t, err)
	token := svc.NewChat(first.SessionToken)

	snap, err := svc.SelectChat(context.Background(), token, userId, *first.ChatId)
	require.NoError(t, err)
	assert.Equal(t, *first.ChatId, snap.ChatId)
	assert.Len(t, snap.Messages, 2)

	sess, _ := sessions.Get(token)
	assert.Equal(t, entity.ModePersisted, sess.Mode)
}

func TestSelectChatRefusesForeignChat(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakeQA{})
	owner := uuid.New()
	intruder := uuid.New()

	res, err := svc.Ask(context.Background(), "", &owner, "private")
	require.NoError(t, err)

	_, err = svc.SelectChat(context.Background(), "", intruder, *res.ChatId)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteCurrentChatResetsSession(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	res, err := svc.Ask(context.Background(), "", &userId, "to be deleted")
	require.NoError(t, err)

	err = svc.DeleteChat(context.Background(), res.SessionToken, userId, *res.ChatId)
	require.NoError(t, err)

	sess, _ := sessions.Get(res.SessionToken)
	assert.Equal(t, entity.ModeGuest, sess.Mode)
	assert.Nil(t, sess.CurrentChatId)
	assert.Empty(t, store.chats)
}

func TestDeleteOtherChatKeepsSession(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(store, &fakeQA{})
	userId := uuid.New()

	first, err := svc.Ask(context.Background(), "", &userId, "first")
	require.NoError(t, err)
	token := svc.NewChat(first.SessionToken)
	second, err := svc.Ask(context.Background(), token, &userId, "second")
	require.NoError(t, err)

	err = svc.DeleteChat(context.Background(), token, userId, *first.ChatId)
	require.NoError(t, err)

	sess, _ := sessions.Get(token)
	require.NotNil(t, sess.CurrentChatId)
	assert.Equal(t, *second.ChatId, *sess.CurrentChatId)
}

func TestBusySessionRefusesConcurrentWork(t *testing.T) {
	svc, sessions := newTestService(newFakeStore(), &fakeQA{})
	userId := uuid.New()

	token := svc.NewChat("")
	sess, _ := sessions.Get(token)
	sess.Mu.Lock()
	sess.Busy = true
	sess.Mu.Unlock()

	_, err := svc.Ask(context.Background(), token, nil, "while busy")
	assert.ErrorIs(t, err, ErrSessionBusy)

	_, err = svc.Migrate(context.Background(), token, userId)
	assert.ErrorIs(t, err, ErrSessionBusy)
}
