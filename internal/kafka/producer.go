package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const (
	headerEventType = "event_type"
	headerTenantID  = "tenant_id"
	headerEventID   = "event_id"
)

type Producer interface {
	Publish(ctx context.Context, event domain.SettlementEvent) error
	Close() error
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewKafkaProducer(brokers []string, topic string, log *slog.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Timeout = 5 * time.Second
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("NewKafkaProducer: %w", err)
	}

	log.Info("kafka producer created", "topic", topic, "brokers", brokers)
	return newProducer(producer, topic, log), nil
}

func newProducer(producer sarama.SyncProducer, topic string, log *slog.Logger) *KafkaProducer {
	return &KafkaProducer{producer: producer, topic: topic, log: log}
}

// Publish sends the event keyed by transaction id, so every event for one
// transaction lands on the same partition in order.
func (p *KafkaProducer) Publish(ctx context.Context, event domain.SettlementEvent) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.TransactionID.String()),
		Value: sarama.ByteEncoder(event.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(event.EventType)},
			{Key: []byte(headerTenantID), Value: []byte(event.TenantID)},
			{Key: []byte(headerEventID), Value: []byte(event.ID.String())},
		},
		Timestamp: event.CreatedAt,
	}

	type result struct {
		partition int32
		offset    int64
		err       error
	}
	resultCh := make(chan result, 1)

	go func() {
		partition, offset, err := p.producer.SendMessage(msg)
		resultCh <- result{partition, offset, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return fmt.Errorf("Publish %s: %w", event.EventType, res.err)
		}
		p.log.Debug("settlement event published",
			"event_id", event.ID,
			"event_type", event.EventType,
			"partition", res.partition,
			"offset", res.offset,
		)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Publish %s: %w", event.EventType, ctx.Err())
	}
}

func (p *KafkaProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	p.log.Info("closing kafka producer")
	return p.producer.Close()
}

// NoOpProducer accepts every event without sending it anywhere. Used when
// kafka is disabled so the outbox still drains.
type NoOpProducer struct {
	log *slog.Logger
}

func NewNoOpProducer(log *slog.Logger) *NoOpProducer {
	return &NoOpProducer{log: log}
}

func (p *NoOpProducer) Publish(_ context.Context, event domain.SettlementEvent) error {
	p.log.Debug("kafka disabled, event not published",
		"event_id", event.ID,
		"event_type", event.EventType,
	)
	return nil
}

func (p *NoOpProducer) Close() error {
	return nil
}
