package service

import (
	"context"
	"encoding/json"
	"fmt"

	"agentmsa-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IPublisherService sends chat-change notifications onto the in-process
// change feed. Every chat or message write goes through here so live
// subscriptions observe it.
type IPublisherService interface {
	PublishChatChanged(ctx context.Context, payload dto.ChatChangedMessage) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *publisherService) PublishChatChanged(ctx context.Context, payload dto.ChatChangedMessage) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal chat change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	return ps.pubSub.Publish(ps.topicName, msg)
}
