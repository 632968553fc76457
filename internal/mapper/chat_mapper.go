package mapper

import (
	"encoding/json"

	"agentmsa-be/internal/entity"
	"agentmsa-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}
	return &entity.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		Preview:   c.Preview,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}
	return &model.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		Preview:   c.Preview,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ChatMapper) MessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	var sources []entity.Source
	if len(msg.Sources) > 0 {
		// A decode failure leaves sources empty rather than failing the
		// read; the message text is still worth showing.
		_ = json.Unmarshal(msg.Sources, &sources)
	}
	return &entity.ChatMessage{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Role:      msg.Role,
		Content:   msg.Content,
		Sources:   sources,
		Seq:       msg.Seq,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	var sources datatypes.JSON
	if len(msg.Sources) > 0 {
		raw, err := json.Marshal(msg.Sources)
		if err == nil {
			sources = datatypes.JSON(raw)
		}
	}
	return &model.ChatMessage{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Role:      msg.Role,
		Content:   msg.Content,
		Sources:   sources,
		Seq:       msg.Seq,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
