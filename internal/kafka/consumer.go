package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aviorian/monad-mindshare/internal/config"
)

// EventConsumer reads events written by the publishers in this package.
type EventConsumer struct {
	reader *kafka.Reader
}

func NewEventConsumer(cfg config.Config, topic string) *EventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   topic,
	})
	return &EventConsumer{reader: reader}
}

// Consume reads messages and passes each decoded event to handler until ctx
// is cancelled or handler fails.
func (c *EventConsumer) Consume(ctx context.Context, handler func(context.Context, *structpb.Struct) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("kafka read: %w", err)
		}

		event, err := DecodeEvent(msg.Value)
		if err != nil {
			return err
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func (c *EventConsumer) Close() error {
	return c.reader.Close()
}
