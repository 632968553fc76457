package bootstrap

import (
	"context"
	"log"

	"agentmsa-be/internal/config"
	"agentmsa-be/internal/controller"
	"agentmsa-be/internal/handler"
	"agentmsa-be/internal/pkg/logger"
	"agentmsa-be/internal/pkg/mailer"
	"agentmsa-be/internal/repository/memory"
	"agentmsa-be/internal/repository/unitofwork"
	"agentmsa-be/internal/service"
	"agentmsa-be/internal/websocket"
	"agentmsa-be/pkg/qa"

	pktNats "agentmsa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	StreamService service.IStreamService

	// WebSockets
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// In-memory guest session storage
	sessionRepo := memory.NewGuestSessionRepository()

	// QA backend
	qaClient := qa.NewClient(cfg.QA.BaseURL)

	// 3. Services
	publisherService := service.NewPublisherService(cfg.Topics.ChatChanged, pubSub)
	chatStore := service.NewChatStore(uowFactory, publisherService, sysLogger)

	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	sessionService := service.NewSessionService(sessionRepo, chatStore, qaClient, natsPub, sysLogger)
	streamService := service.NewStreamService(
		pubSub,
		cfg.Topics.ChatChanged,
		chatStore,
		wsHub,
		wsLogger,
	)

	// Audit trail worker
	if natsSub != nil {
		activityService := service.NewActivityService(natsSub, sysLogger)
		go activityService.Start()
	}

	// Handler
	streamHandler := handler.NewStreamHandler(streamService, wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		AuthController: controller.NewAuthController(authService),
		ChatController: controller.NewChatController(sessionService, chatStore),

		StreamService: streamService,

		StreamHandler: streamHandler,
		WebSocketHub:  wsHub,
	}
}
