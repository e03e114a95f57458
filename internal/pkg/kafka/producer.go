package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewProducer returns a writer for match events. Writes are synchronous so the
// event dispatcher sees delivery failures; keys are hashed so every event of a
// match lands on the same partition.
func NewProducer(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
