package controller

import (
	"errors"

	"agentmsa-be/internal/dto"
	"agentmsa-be/internal/pkg/serverutils"
	"agentmsa-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderSessionToken carries the guest session token. The first response
// returns a minted token; clients echo it on every later request so the
// server can find their conversation state.
const HeaderSessionToken = "X-Session-Token"

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	Migrate(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	New(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type chatController struct {
	sessionService service.ISessionService
	chatStore      service.ChatStore
}

func NewChatController(sessionService service.ISessionService, chatStore service.ChatStore) IChatController {
	return &chatController{
		sessionService: sessionService,
		chatStore:      chatStore,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	// Ask and new-chat serve guests too; auth is resolved when present.
	r.Post("/ask", serverutils.OptionalJwtMiddleware, c.Ask)

	h := r.Group("/chats")
	h.Post("/new", serverutils.OptionalJwtMiddleware, c.New)
	h.Use(serverutils.JwtMiddleware)
	h.Post("/migrate", c.Migrate)
	h.Get("", c.List)
	h.Get(":id/messages", c.Messages)
	h.Post(":id/select", c.Select)
	h.Delete(":id", c.Delete)
}

// optionalUserId reads the identity set by the jwt middleware, absent for
// guests.
func optionalUserId(ctx *fiber.Ctx) *uuid.UUID {
	v := ctx.Locals("user_id")
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func requiredUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}

func mapSessionError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "code": 404, "message": err.Error(),
		})
	case errors.Is(err, service.ErrSessionBusy), errors.Is(err, service.ErrAlreadyMigrated):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false, "code": 409, "message": err.Error(),
		})
	case errors.Is(err, service.ErrNothingToMigrate), errors.Is(err, service.ErrEmptyQuery):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "code": 400, "message": err.Error(),
		})
	default:
		return err
	}
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	token := ctx.Get(HeaderSessionToken)
	userId := optionalUserId(ctx)

	res, err := c.sessionService.Ask(ctx.Context(), token, userId, req.Query)
	if err != nil {
		return mapSessionError(ctx, err)
	}

	ctx.Set(HeaderSessionToken, res.SessionToken)
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *chatController) Migrate(ctx *fiber.Ctx) error {
	token := ctx.Get(HeaderSessionToken)
	userId := requiredUserId(ctx)

	res, err := c.sessionService.Migrate(ctx.Context(), token, userId)
	if err != nil {
		return mapSessionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation migrated", res))
}

func (c *chatController) List(ctx *fiber.Ctx) error {
	userId := requiredUserId(ctx)

	chats, err := c.chatStore.ListChats(ctx.Context(), userId)
	if err != nil {
		return err
	}

	res := dto.ChatListSnapshot{Chats: make([]dto.ChatSummaryResponse, 0, len(chats))}
	for _, chat := range chats {
		res.Chats = append(res.Chats, dto.ChatSummaryResponse{
			Id:        chat.Id,
			Title:     chat.Title,
			Preview:   chat.Preview,
			CreatedAt: chat.CreatedAt,
			UpdatedAt: chat.UpdatedAt,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *chatController) Messages(ctx *fiber.Ctx) error {
	userId := requiredUserId(ctx)

	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat id")
	}

	msgs, err := c.chatStore.ListMessages(ctx.Context(), userId, chatId)
	if err != nil {
		return mapSessionError(ctx, err)
	}

	res := dto.MessagesSnapshot{ChatId: chatId, Messages: make([]dto.MessageDTO, 0, len(msgs))}
	for _, m := range msgs {
		m := m
		res.Messages = append(res.Messages, dto.MessageDTO{
			Id:        &m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Sources:   m.Sources,
			CreatedAt: &m.CreatedAt,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *chatController) Select(ctx *fiber.Ctx) error {
	userId := requiredUserId(ctx)

	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat id")
	}

	token := ctx.Get(HeaderSessionToken)

	res, err := c.sessionService.SelectChat(ctx.Context(), token, userId, chatId)
	if err != nil {
		return mapSessionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat selected", res))
}

func (c *chatController) New(ctx *fiber.Ctx) error {
	token := c.sessionService.NewChat(ctx.Get(HeaderSessionToken))

	ctx.Set(HeaderSessionToken, token)
	return ctx.JSON(serverutils.SuccessResponse("New conversation started", fiber.Map{
		"session_token": token,
	}))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId := requiredUserId(ctx)

	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat id")
	}

	token := ctx.Get(HeaderSessionToken)

	if err := c.sessionService.DeleteChat(ctx.Context(), token, userId, chatId); err != nil {
		return mapSessionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat deleted", nil))
}
