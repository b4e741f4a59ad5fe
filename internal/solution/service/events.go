package service

import (
	"context"
	"encoding/json"
	"time"

	"skillforge/internal/common/mq"
	"skillforge/internal/solution/repository"
	"skillforge/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultEventTopic is the kafka topic solution lifecycle events land on.
const DefaultEventTopic = "skillforge.solution.events"

// StatusEvent is published whenever a solution changes lifecycle state.
type StatusEvent struct {
	SolutionID  string                    `json:"solution_id"`
	ChallengeID string                    `json:"challenge_id"`
	ActorID     string                    `json:"actor_id"`
	FromStatus  repository.SolutionStatus `json:"from_status"`
	ToStatus    repository.SolutionStatus `json:"to_status"`
	OccurredAt  time.Time                 `json:"occurred_at"`
}

// eventPublisher emits lifecycle events to a message queue. Publishing is
// best-effort: a broker failure must never fail the transition that already
// committed, so errors are logged and dropped.
type eventPublisher struct {
	producer mq.Producer
	topic    string
}

func newEventPublisher(producer mq.Producer, topic string) *eventPublisher {
	if topic == "" {
		topic = DefaultEventTopic
	}
	return &eventPublisher{producer: producer, topic: topic}
}

func (p *eventPublisher) publish(ctx context.Context, event StatusEvent) {
	if p == nil || p.producer == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx, "marshal solution status event failed", zap.Error(err))
		return
	}

	message := mq.NewMessage(body)
	message.SetHeader("x-event-type", "solution.status_changed")
	message.SetHeader("x-solution-id", event.SolutionID)

	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		logger.Error(ctx, "publish solution status event failed",
			zap.Error(err),
			zap.String("solution_id", event.SolutionID),
			zap.String("to_status", string(event.ToStatus)),
		)
	}
}
