package ingest

import (
	"context"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer publishes every message of a topic. Offsets are committed by
// the reader's group, so a restarted gateway resumes after the last message
// it handled; clients that were offline still miss events.
type KafkaConsumer struct {
	reader  MessageReader
	pub     Publisher
	backoff time.Duration
}

func NewKafkaConsumer(brokers []string, topic, groupID string, pub Publisher) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	return newKafkaConsumer(reader, pub)
}

func newKafkaConsumer(reader MessageReader, pub Publisher) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, pub: pub, backoff: time.Second}
}

// Run consumes until ctx is cancelled, then closes the reader.
func (k *KafkaConsumer) Run(ctx context.Context) {
	defer func() {
		if err := k.reader.Close(); err != nil {
			logger.Warn("kafka reader close failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("kafka consumer stopped", nil)
				return
			}
			logger.Warn("kafka read error", map[string]any{
				"error": err.Error(),
			})
			select {
			case <-time.After(k.backoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		_, _ = deliver(ctx, k.pub, "kafka", msg.Value)
	}
}

// KafkaProducer writes producer messages to the topic the gateway consumes.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaProducer) Emit(ctx context.Context, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{Value: payload})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
