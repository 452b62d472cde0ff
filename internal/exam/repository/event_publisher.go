package repository

import (
	"context"
	"encoding/json"
	"time"

	"examhall/internal/common/mq"
	"examhall/internal/exam/model"
	"examhall/pkg/utils/logger"

	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// EventPublisher emits audit events for the exam stream.
// Publishing is best-effort: the exam authority never fails an operation
// because the stream is down.
type EventPublisher interface {
	Publish(ctx context.Context, event model.Event)
}

// MQEventPublisher publishes audit events to a message queue topic.
type MQEventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQEventPublisher creates a publisher for the given topic.
func NewMQEventPublisher(producer mq.Producer, topic string) *MQEventPublisher {
	return &MQEventPublisher{producer: producer, topic: topic}
}

// Publish marshals and sends the event, keyed by exam code so per-exam
// ordering is preserved on the partition.
func (p *MQEventPublisher) Publish(ctx context.Context, event model.Event) {
	if p == nil || p.producer == nil || p.topic == "" {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx, "marshal audit event failed", zap.Error(err))
		return
	}

	message := mq.NewMessage(payload)
	message.ID = event.ExamCode
	message.SetHeader("event-type", string(event.Type))

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.producer.Publish(pubCtx, p.topic, message); err != nil {
		logger.Error(ctx, "publish audit event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("exam_code", event.ExamCode),
			zap.Error(err))
	}
}

// NoopEventPublisher discards all events. Used when the stream is disabled.
type NoopEventPublisher struct{}

// Publish discards the event.
func (NoopEventPublisher) Publish(context.Context, model.Event) {}
