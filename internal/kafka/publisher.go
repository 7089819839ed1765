package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func encode(key string, event *structpb.Struct) (kafka.Message, error) {
	value, err := proto.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event proto: %w", err)
	}
	return kafka.Message{Key: []byte(key), Value: value}, nil
}

// LeaderboardPublisher publishes committed leaderboard snapshots.
type LeaderboardPublisher struct {
	writer *kafka.Writer
	Topic  string
	now    func() time.Time
}

func NewLeaderboardPublisher(cfg config.Config) *LeaderboardPublisher {
	return &LeaderboardPublisher{
		writer: newWriter(cfg.KafkaBrokers, cfg.KafkaTopicLeaderboard),
		Topic:  cfg.KafkaTopicLeaderboard,
		now:    time.Now,
	}
}

func (p *LeaderboardPublisher) PublishSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	event, err := LeaderboardEvent(snap, p.now())
	if err != nil {
		return err
	}
	msg, err := encode(strconv.FormatUint(snap.Generation, 10), event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *LeaderboardPublisher) Close() error {
	return p.writer.Close()
}

// TransferPublisher publishes tracker transitions. Writes are asynchronous so
// a slow broker never stalls the state machine; failures are logged.
type TransferPublisher struct {
	writer *kafka.Writer
	Topic  string
	logger *zap.Logger
}

func NewTransferPublisher(cfg config.Config, logger *zap.Logger) *TransferPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("kafka")
	writer := newWriter(cfg.KafkaBrokers, cfg.KafkaTopicTransfers)
	writer.Async = true
	writer.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			logger.Warn("publish transfer events", zap.Int("messages", len(messages)), zap.Error(err))
		}
	}
	return &TransferPublisher{writer: writer, Topic: cfg.KafkaTopicTransfers, logger: logger}
}

// PublishTransition matches transfer.Tracker's transition hook signature.
func (p *TransferPublisher) PublishTransition(state transfer.State) {
	event, err := TransferEvent(state)
	if err != nil {
		p.logger.Warn("build transfer event", zap.Error(err))
		return
	}
	msg, err := encode(state.AttemptID, event)
	if err != nil {
		p.logger.Warn("encode transfer event", zap.Error(err))
		return
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Warn("queue transfer event", zap.Error(err))
	}
}

func (p *TransferPublisher) Close() error {
	return p.writer.Close()
}
