package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

// MessageWriter is the part of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is the part of *kafka.Reader the feed needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// KafkaSink publishes match events as JSON, keyed by match ID so a match's events stay ordered.
type KafkaSink struct {
	writer MessageWriter
}

func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Handle(ctx context.Context, ev gamemaster.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.MatchID), 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Feed reads match events from Kafka and hands each one to fn until ctx is cancelled.
func Feed(ctx context.Context, reader MessageReader, fn func(gamemaster.Event)) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			slog.Error("Error reading from Kafka", "error", err)
			continue
		}

		var ev gamemaster.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			slog.Error("Failed to unmarshal match event", "key", string(msg.Key), "error", err)
			continue
		}
		fn(ev)
	}
}
