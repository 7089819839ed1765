package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aviorian/monad-mindshare/internal/kafka"
)

var eventsStream string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail leaderboard or transfer events from Kafka",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsStream, "stream", "leaderboard", "event stream to tail: leaderboard or transfers")
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var topic string
	switch eventsStream {
	case "leaderboard":
		topic = cfg.KafkaTopicLeaderboard
	case "transfers":
		topic = cfg.KafkaTopicTransfers
	default:
		return fmt.Errorf("unknown stream %q, want leaderboard or transfers", eventsStream)
	}

	consumer := kafka.NewEventConsumer(cfg, topic)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("close kafka consumer", zap.Error(err))
		}
	}()

	logger.Info("tailing events", zap.String("topic", topic))
	err = consumer.Consume(cmd.Context(), printEvent(cmd.OutOrStdout()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(w io.Writer) func(context.Context, *structpb.Struct) error {
	return func(_ context.Context, event *structpb.Struct) error {
		data, err := protojson.Marshal(event)
		if err != nil {
			return fmt.Errorf("render event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s %s\n", kafka.EventTime(event).Format("15:04:05"), data)
		return err
	}
}
