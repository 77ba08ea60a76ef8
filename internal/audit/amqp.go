package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPRecorder struct {
	pub      Publisher
	exchange string
	closers  []func() error
}

func NewAMQPRecorder(pub Publisher, exchange string) *AMQPRecorder {
	return &AMQPRecorder{pub: pub, exchange: exchange}
}

// DialAMQP connects, declares a durable topic exchange and returns a recorder
// publishing to it.
func DialAMQP(url, exchange string) (*AMQPRecorder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	r := NewAMQPRecorder(ch, exchange)
	r.closers = []func() error{ch.Close, conn.Close}
	return r, nil
}

// Record publishes a persistent JSON message routed by "<entity>.<action>".
func (r *AMQPRecorder) Record(ctx context.Context, ev Event) error {
	ev = stamp(ev)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.pub.PublishWithContext(ctx, r.exchange, ev.Key(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		MessageId:    ev.EntityID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

func (r *AMQPRecorder) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
