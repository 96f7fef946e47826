package service

import (
	"context"
	"encoding/json"

	"medirag-be/pkg/events"
	"medirag-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService runs the memory retention sweep off the request path.
// The write side publishes a maintenance message every transform
// interval; this consumer picks it up and deletes stale turns.
type consumerService struct {
	pubSub *gochannel.GoChannel
	memory *memory.Service
	logger *zap.Logger
}

func NewConsumerService(pubSub *gochannel.GoChannel, mem *memory.Service, logger *zap.Logger) IConsumerService {
	return &consumerService{pubSub: pubSub, memory: mem, logger: logger}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, events.TopicMemoryMaintenance)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload events.MemoryMaintenanceMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("failed to unmarshal maintenance message", zap.Error(err))
		msg.Ack() // invalid payloads are not retriable
		return
	}

	deleted, err := cs.memory.Transform(ctx)
	if err != nil {
		cs.logger.Error("memory maintenance sweep failed", zap.Error(err))
		msg.Nack()
		return
	}

	cs.logger.Info("memory maintenance sweep done",
		zap.Int64("turn_count", payload.TurnCount),
		zap.Int64("deleted", deleted))
	msg.Ack()
}
