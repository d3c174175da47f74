package service

import (
	"context"
	"encoding/json"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/unitofwork"
	"couple-summary-be/pkg/audit"
	"couple-summary-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventPublisher is the cross-service bus. *nats.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// auditConsumer drains the audit topic: each event is stored in
// ai_generation_events, mirrored to the audit log file, and published on the
// bus. Every step is best-effort and messages are always acked.
type auditConsumer struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	bus        EventPublisher
	auditLog   logger.ILogger
	logger     logger.ILogger
}

func NewAuditConsumer(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	bus EventPublisher,
	auditLog logger.ILogger,
	log logger.ILogger,
) IConsumerService {
	return &auditConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		bus:        bus,
		auditLog:   auditLog,
		logger:     log,
	}
}

func (c *auditConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (c *auditConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var evt audit.Event
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		c.logger.Error("AUDIT", "Dropping undecodable audit message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	c.auditLog.Info("AUDIT", evt.Event, map[string]interface{}{
		"session_id": evt.SessionId.String(),
		"user_id":    evt.UserId.String(),
		"details":    evt.Details,
	})

	c.store(ctx, &evt)

	if c.bus != nil {
		busEvent := events.NewSummaryEvent(evt.SessionId, evt.UserId, evt.Event, evt.Details, evt.OccurredAt)
		if err := c.bus.Publish(ctx, busEvent); err != nil {
			c.logger.Warn("AUDIT", "Failed to publish audit event", map[string]interface{}{
				"event": busEvent.EventType(),
				"error": err.Error(),
			})
		}
	}
}

func (c *auditConsumer) store(ctx context.Context, evt *audit.Event) {
	var details json.RawMessage
	if evt.Details != nil {
		raw, err := json.Marshal(evt.Details)
		if err == nil {
			details = raw
		}
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	err := uow.GenerationEventRepository().Create(ctx, &entity.GenerationEvent{
		Id:        uuid.New(),
		SessionId: evt.SessionId,
		UserId:    evt.UserId,
		Event:     evt.Event,
		Details:   details,
		CreatedAt: evt.OccurredAt,
	})
	if err != nil {
		c.logger.Warn("AUDIT", "Failed to store audit event", map[string]interface{}{
			"event":      evt.Event,
			"session_id": evt.SessionId.String(),
			"error":      err.Error(),
		})
	}
}
