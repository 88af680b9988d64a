// Package transport moves messages to and from broker queues.
package transport

import (
	"context"
	"fmt"
	"net/url"
)

// Transport puts messages onto queues and fetches them back.
//
// Fetch never blocks waiting for a message: an empty queue returns
// (nil, false, nil). Errors are reserved for transport failures.
type Transport interface {
	Put(ctx context.Context, queue string, msg []byte) error
	Fetch(ctx context.Context, queue string) ([]byte, bool, error)
	Close() error
}

// Drain fetches from queue until it reports empty and returns how many
// messages were discarded. The loop is unbounded.
func Drain(ctx context.Context, t Transport, queue string) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		_, ok, err := t.Fetch(ctx, queue)
		if err != nil {
			return n, fmt.Errorf("drain %s: %w", queue, err)
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// Open connects to the transport named by rawURL. Supported schemes are
// amqp, amqps and memory.
func Open(rawURL string) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URL: %w", err)
	}
	switch u.Scheme {
	case "amqp", "amqps":
		return DialAMQP(rawURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported transport scheme %q", u.Scheme)
	}
}
