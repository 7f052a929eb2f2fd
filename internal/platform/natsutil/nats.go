// Package natsutil connects to NATS JetStream and ensures the streams the
// gateway relies on exist before any subscriber starts.
package natsutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// CommandStream persists inbound configure/submit envelopes.
	CommandStream = "BRIGADE_CMD"
	// ReplyStream persists outbound reply envelopes.
	ReplyStream = "BRIGADE_REPLY"

	// CommandSubjectPrefix is the subject root for inbound envelopes; one
	// token per channel follows the prefix.
	CommandSubjectPrefix = "brigade.cmd."
	// ReplySubjectPrefix is the subject root for outbound reply envelopes.
	ReplySubjectPrefix = "brigade.reply."
)

// Client bundles a NATS connection with its JetStream context.
type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
}

// Connect dials NATS, opens a JetStream context, and ensures streams.
func Connect(url string) (*Client, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, JS: js}, nil
}

// ConnectWithRetry dials NATS until it succeeds or the timeout elapses.
func ConnectWithRetry(url string, timeout time.Duration) (*Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := Connect(url)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect nats timeout after %s: %w", timeout, lastErr)
}

// Close drains and closes the underlying connection.
func (c *Client) Close() {
	if c == nil || c.Conn == nil {
		return
	}
	_ = c.Conn.Drain()
	c.Conn.Close()
}

// EnsureStreams creates (or validates) the command and reply streams.
func EnsureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      CommandStream,
			Subjects:  []string{CommandSubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
		{
			Name:      ReplyStream,
			Subjects:  []string{ReplySubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
	}
	for _, cfg := range streams {
		if _, err := js.StreamInfo(cfg.Name); err != nil {
			if !errors.Is(err, nats.ErrStreamNotFound) {
				return fmt.Errorf("stream info %s: %w", cfg.Name, err)
			}
			stream := cfg
			if _, err := js.AddStream(&stream); err != nil {
				return fmt.Errorf("add stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// Publisher publishes a payload to a subject. The gateway depends on this
// narrow interface so tests can capture publishes without a broker.
type Publisher interface {
	Publish(subject string, payload []byte) error
}

// JetStreamPublisher publishes through a JetStream context.
type JetStreamPublisher struct {
	JS nats.JetStreamContext
}

// Publish implements Publisher.
func (p JetStreamPublisher) Publish(subject string, payload []byte) error {
	_, err := p.JS.Publish(subject, payload)
	return err
}
