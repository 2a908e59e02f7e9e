package providers

import (
	"context"

	"contentpilot/shared/kafka"
	"contentpilot/types"
)

// KafkaUsageMeter emits usage events to a Kafka topic keyed by owner
type KafkaUsageMeter struct {
	producer *kafka.Producer
}

// NewKafkaUsageMeter wraps a producer bound to the usage topic
func NewKafkaUsageMeter(producer *kafka.Producer) *KafkaUsageMeter {
	return &KafkaUsageMeter{producer: producer}
}

func (m *KafkaUsageMeter) Record(ctx context.Context, event types.UsageEvent) error {
	return m.producer.PublishJSON(ctx, event.OwnerID, event)
}
