package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// AMQP is a Transport backed by an AMQP 0-9-1 broker. Queue names are used
// as routing keys on the default exchange; queues must already exist.
type AMQP struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

// DialAMQP connects to the broker at rawURL and opens a channel.
func DialAMQP(rawURL string) (*AMQP, error) {
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &AMQP{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

// Put publishes msg to queue as a persistent message.
func (a *AMQP) Put(ctx context.Context, queue string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.ensure(queue); err != nil {
		return err
	}
	err := a.ch.Publish(
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/octet-stream",
			DeliveryMode: amqp.Persistent,
			Body:         msg,
		})
	if err != nil {
		return fmt.Errorf("put %s: %w", queue, err)
	}
	return nil
}

// Fetch gets one message from queue, acknowledging it on receipt.
func (a *AMQP) Fetch(ctx context.Context, queue string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := a.ensure(queue); err != nil {
		return nil, false, err
	}
	d, ok, err := a.ch.Get(queue, true)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", queue, err)
	}
	if !ok {
		return nil, false, nil
	}
	return d.Body, true, nil
}

// ensure checks once per queue that it exists on the broker.
func (a *AMQP) ensure(queue string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.declared[queue] {
		return nil
	}
	if _, err := a.ch.QueueDeclarePassive(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("queue %s: %w", queue, err)
	}
	a.declared[queue] = true
	return nil
}

// Close closes the channel and the connection.
func (a *AMQP) Close() error {
	chErr := a.ch.Close()
	if err := a.conn.Close(); err != nil {
		return err
	}
	return chErr
}
