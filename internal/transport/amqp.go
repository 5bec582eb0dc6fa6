package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Envelope is the CBOR body of an AMQP delivery.
type Envelope struct {
	To      int    `cbor:"1,keyasint"`
	Payload []byte `cbor:"2,keyasint"`
}

// QueueName is the queue a participant listening on address consumes from.
func QueueName(address int) string {
	return fmt.Sprintf("onion.%d", address)
}

// AMQPTransport routes payloads through a broker, one queue per address.
type AMQPTransport struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
}

func DialAMQP(url string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}
	return &AMQPTransport{conn: conn, ch: ch}, nil
}

func (t *AMQPTransport) declare(address int) error {
	_, err := t.ch.QueueDeclare(QueueName(address), true, false, false, false, nil)
	return err
}

func (t *AMQPTransport) Send(ctx context.Context, address int, payload []byte) error {
	body, err := cbor.Marshal(Envelope{To: address, Payload: payload})
	if err != nil {
		return onion.TransportError(err, address)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err = t.declare(address); err != nil {
		return onion.TransportError(err, address)
	}
	err = t.ch.PublishWithContext(ctx, "", QueueName(address), false, false, amqp.Publishing{
		ContentType:  "application/cbor",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return onion.TransportError(err, address)
	}
	return nil
}

// Consume hands every delivery addressed to address to receive until ctx is done.
// Deliveries that fail to decode or process are rejected without requeue.
func (t *AMQPTransport) Consume(ctx context.Context, address int, receive ReceiveFunc) error {
	t.mu.Lock()
	err := t.declare(address)
	var deliveries <-chan amqp.Delivery
	if err == nil {
		deliveries, err = t.ch.Consume(QueueName(address), "", false, false, false, false, nil)
	}
	t.mu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "failed to consume %s", QueueName(address))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.Errorf("delivery channel for %s closed", QueueName(address))
			}
			handleDelivery(ctx, address, d, receive)
		}
	}
}

func handleDelivery(ctx context.Context, address int, d amqp.Delivery, receive ReceiveFunc) {
	var env Envelope
	if err := cbor.Unmarshal(d.Body, &env); err != nil || env.To != address {
		slog.Error("Dropping undecodable delivery", "queue", QueueName(address), "err", err)
		_ = d.Nack(false, false)
		return
	}
	if err := receive(ctx, env.Payload); err != nil {
		slog.Error("Error processing delivery", "queue", QueueName(address), "err", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ch.Close(); err != nil {
		slog.Error("Error closing channel", "err", err)
	}
	return t.conn.Close()
}
