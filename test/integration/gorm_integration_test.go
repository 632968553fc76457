package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/repository/specification"
	"agentmsa-be/internal/repository/unitofwork"
	"agentmsa-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()

	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	return unitofwork.NewRepositoryFactory(gormDB)
}

func TestGormConnection(t *testing.T) {
	uowFactory := setupDB(t)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.ChatRepository())
	assert.NotNil(t, uow.ChatMessageRepository())

	t.Run("Check User Repository", func(t *testing.T) {
		count, err := uow.UserRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("users count: %d", count)
	})
}

func TestChatRoundTrip(t *testing.T) {
	uowFactory := setupDB(t)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	user := &entity.User{
		Id:       uuid.New(),
		Email:    "it-" + uuid.NewString() + "@agentmsa.dev",
		FullName: "Integration Test",
		Role:     entity.UserRoleUser,
		Status:   entity.UserStatusActive,
	}
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	defer uow.UserRepository().Delete(ctx, user.Id)

	chat := &entity.Chat{
		Id:      uuid.New(),
		UserId:  user.Id,
		Title:   "integration chat",
		Preview: "integration chat",
	}
	require.NoError(t, uow.ChatRepository().Create(ctx, chat))
	defer uow.ChatRepository().Delete(ctx, chat.Id)

	// A migrated batch shares one timestamp; seq decides the read order
	// regardless of insert order.
	batchAt := time.Now().UTC().Truncate(time.Microsecond)
	for seq := 3; seq >= 1; seq-- {
		msg := &entity.ChatMessage{
			Id:        uuid.New(),
			ChatId:    chat.Id,
			Role:      entity.RoleUser,
			Content:   "message",
			Seq:       seq,
			CreatedAt: batchAt,
		}
		require.NoError(t, uow.ChatMessageRepository().Create(ctx, msg))
	}
	defer uow.ChatMessageRepository().DeleteAllByChatId(ctx, chat.Id)

	msgs, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chat.Id},
		specification.MessageOrder{},
	)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Seq)
	}

	// Generic ordering and pagination specs compose with the filters.
	page, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chat.Id},
		specification.OrderBy{Field: "seq", Desc: true},
		specification.Pagination{Limit: 2, Offset: 0},
	)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].Seq)

	// Ownership scoping
	found, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chat.Id},
		specification.OwnedBy{UserID: uuid.New()},
	)
	require.NoError(t, err)
	assert.Nil(t, found, "a foreign user must not see the chat")
}
