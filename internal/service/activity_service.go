package service

import (
	"context"
	"fmt"
	"strings"

	"agentmsa-be/internal/pkg/logger"
	"agentmsa-be/pkg/events"
	pktNats "agentmsa-be/pkg/nats"
)

// ActivityService consumes the domain event stream and writes the audit
// trail. Registrations, logins, and chat lifecycle events all land here,
// decoupled from the request path that produced them.
type ActivityService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewActivityService(sub *pktNats.Subscriber, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *ActivityService) Start() {
	err := s.subscriber.Subscribe("events.>", "activity-service-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("ActivityService", "Failed to start activity subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("ActivityService", "Activity service started, listening to events.>", nil)
}

func (s *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	details := map[string]interface{}{"type": typeCode}
	for k, v := range event.Payload() {
		details[k] = v
	}

	s.logger.Info("ActivityService", fmt.Sprintf("Event: %s", typeCode), details)
	return nil
}
