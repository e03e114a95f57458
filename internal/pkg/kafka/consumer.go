package kafka

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrGroupRequired = errors.New("kafka consumer group is required")

// readerConfig builds a consumer-group reader config. A group is required: the producer
// hashes match IDs across partitions, and only a group reader is assigned all of them.
// startOffset applies when the group has no committed offset yet.
func readerConfig(brokers []string, topic, groupID string, startOffset int64) (kafka.ReaderConfig, error) {
	if groupID == "" {
		return kafka.ReaderConfig{}, ErrGroupRequired
	}
	cfg := kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID, // Consumers in the same group share the load.
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return kafka.ReaderConfig{}, err
	}
	return cfg, nil
}

// NewConsumer returns a group reader for the match event topic.
func NewConsumer(brokers []string, topic, groupID string, startOffset int64) (*kafka.Reader, error) {
	cfg, err := readerConfig(brokers, topic, groupID, startOffset)
	if err != nil {
		return nil, err
	}
	return kafka.NewReader(cfg), nil
}
