package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RKDocumentAvailable is the routing key for availability events.
const RKDocumentAvailable = "document.available"

// AMQPDispatcher publishes availability events to a topic exchange. The
// downstream notification service owns delivery (email/SMS); this side only
// hands the event over.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

var _ Dispatcher = (*AMQPDispatcher)(nil)

// NewAMQPDispatcher dials the broker and declares the exchange.
func NewAMQPDispatcher(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (d *AMQPDispatcher) NotifyDocumentAvailable(ctx context.Context, ev DocumentAvailable) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.ch.PublishWithContext(ctx, d.exchange, RKDocumentAvailable, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
	})
}

func (d *AMQPDispatcher) Close() error {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
