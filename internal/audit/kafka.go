package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBatchTimeout bounds how long Record waits for a batch to fill. Record
// runs synchronously after commit, so kafka-go's 1s default would stall
// every audited request.
const KafkaBatchTimeout = 10 * time.Millisecond

type KafkaRecorder struct {
	Writer MessageWriter
}

func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	return &KafkaRecorder{Writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           KafkaBatchTimeout,
		AllowAutoTopicCreation: true,
	}}
}

// Record keys messages by entity id so events for one row stay ordered.
func (r *KafkaRecorder) Record(ctx context.Context, ev Event) error {
	ev = stamp(ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return r.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EntityID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Key())},
		},
	})
}

func (r *KafkaRecorder) Close() error {
	return r.Writer.Close()
}
