package ingestion

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig holds Kafka consumer configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// kafkaReader is the subset of *kafka.Reader the source uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes JSON events from a topic with a consumer group.
// Offsets are committed only when a message is acknowledged.
type KafkaSource struct {
	reader kafkaReader
	logger *zap.Logger
}

// NewKafkaSource creates a consumer-group source. Auto commit is disabled.
func NewKafkaSource(cfg KafkaConfig, logger *zap.Logger) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return newKafkaSource(reader, logger)
}

func newKafkaSource(reader kafkaReader, logger *zap.Logger) *KafkaSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSource{reader: reader, logger: logger}
}

// Subscribe returns a channel of events from the topic.
func (s *KafkaSource) Subscribe(ctx context.Context) (<-chan *Message, error) {
	ch := make(chan *Message, 256)

	go func() {
		defer close(ch)

		for {
			msg, err := s.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("fetching kafka message", zap.Error(err))
				}
				return
			}

			ev, err := DecodeEvent(msg.Value)
			if err != nil {
				s.logger.Warn("skipping malformed kafka message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
				// Commit bad messages to avoid getting stuck
				if err := s.reader.CommitMessages(ctx, msg); err != nil {
					s.logger.Error("committing malformed message", zap.Error(err))
				}
				continue
			}

			kmsg := msg
			out := NewMessage(ev, func(ctx context.Context) error {
				return s.reader.CommitMessages(ctx, kmsg)
			})
			select {
			case <-ctx.Done():
				return
			case ch <- out:
			}
		}
	}()

	return ch, nil
}

// Close closes the underlying reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
