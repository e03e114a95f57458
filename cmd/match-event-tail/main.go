// Command match-event-tail follows the match event topic and logs every match
// start and finish the game master publishes.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/urfave/cli/v3"

	"github.com/cheildo/nexus-checkers/internal/events"
	"github.com/cheildo/nexus-checkers/internal/gamemaster"
	"github.com/cheildo/nexus-checkers/internal/pkg/kafka"
)

func main() {
	cmd := &cli.Command{
		Name:  "match-event-tail",
		Usage: "follow checkers match events on Kafka",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "brokers",
				Usage:   "Kafka broker addresses",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "topic",
				Usage:   "match event topic",
				Value:   "match_events",
				Sources: cli.EnvVars("KAFKA_MATCH_EVENTS_TOPIC"),
			},
			&cli.StringFlag{
				Name:  "group",
				Usage: "consumer group; empty joins a fresh throwaway group",
			},
			&cli.BoolFlag{
				Name:  "from-beginning",
				Usage: "start from the oldest retained event instead of the newest",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print raw events as JSON lines instead of log records",
			},
		},
		Action: tail,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("match-event-tail failed", "error", err)
		os.Exit(1)
	}
}

func tail(ctx context.Context, cmd *cli.Command) error {
	offset := kafkago.LastOffset
	if cmd.Bool("from-beginning") {
		offset = kafkago.FirstOffset
	}

	// Only a group reader is assigned every partition of the topic.
	group := cmd.String("group")
	if group == "" {
		group = "match-event-tail-" + uuid.NewString()
	}
	reader, err := kafka.NewConsumer(cmd.StringSlice("brokers"), cmd.String("topic"), group, offset)
	if err != nil {
		return err
	}
	defer reader.Close()

	slog.Info("Tailing match events", "topic", cmd.String("topic"), "group", group)

	handle := logEvent
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		handle = func(ev gamemaster.Event) {
			if err := enc.Encode(ev); err != nil {
				slog.Error("Failed to write event", "error", err)
			}
		}
	}
	events.Feed(ctx, reader, handle)
	return nil
}

func logEvent(ev gamemaster.Event) {
	attrs := []any{
		"matchID", ev.MatchID,
		"light", ev.LightPlayer,
		"dark", ev.DarkPlayer,
		"at", ev.At,
	}
	if ev.Winner != nil {
		attrs = append(attrs, "winner", ev.Winner.String(), "winnerPlayer", ev.WinnerPlayer)
	}
	slog.Info(string(ev.Type), attrs...)
}
