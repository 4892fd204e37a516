// Package delivery sends notification payloads to the external consumer.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/payload"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// Channel delivers payloads under the connectionless or connection-based discipline.
// The persistent connection is created lazily and kept until Teardown or until the host
// can no longer receive frames.
type Channel struct {
	transport ports.Transport
	hostName  func() string

	mu   sync.Mutex
	conn ports.Conn
}

// NewChannel creates a Channel. hostName is read whenever a host is contacted,
// so configuration reloads apply to the next connection.
func NewChannel(transport ports.Transport, hostName func() string) *Channel {
	if hostName == nil {
		hostName = func() string { return DefaultHostName }
	}
	return &Channel{transport: transport, hostName: hostName}
}

// Send delivers p. Failures are returned to the caller and never retried.
func (c *Channel) Send(ctx context.Context, mode domain.TransportMode, p payload.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("delivery: encode payload: %w", err)
	}

	switch mode {
	case domain.TransportConnectionless:
		return c.transport.SendOnce(ctx, c.hostName(), data)
	case domain.TransportConnectionBased:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn == nil {
			conn, err := c.transport.Connect(ctx, c.hostName())
			if err != nil {
				return fmt.Errorf("delivery: connect: %w", err)
			}
			c.conn = conn
		}
		if err := c.conn.Post(ctx, data); err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				c.conn = nil
			}
			return err
		}
		return nil
	default:
		return fmt.Errorf("delivery: unsupported transport %q", mode)
	}
}

// Teardown closes and forgets the persistent connection, if any.
func (c *Channel) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("delivery: close connection: %w", err)
	}
	return nil
}

// Connected reports whether a persistent connection is open.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
