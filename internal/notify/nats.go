// Package notify forwards fraud log entries to NATS so that other systems can react to blocked calls.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/nats-io/nats.go"
)

// NATS publishes each entry as JSON message to a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

var _ fraudlog.Notifier = &NATS{}

// Connect connects to the NATS server at the given URL.
func Connect(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("voicetrust"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return New(conn, subject), nil
}

func New(conn *nats.Conn, subject string) *NATS {
	return &NATS{conn: conn, subject: subject}
}

func (n *NATS) Notify(ctx context.Context, e fraudlog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal fraud event: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = data
	msg.Header.Set("Trust-Score", fmt.Sprint(e.TrustScore))
	msg.Header.Set("Bank-Status", e.BankStatus)

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish fraud event: %w", err)
	}

	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
