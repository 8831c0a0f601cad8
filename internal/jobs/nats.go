package jobs

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// NATSClient holds a NATS connection and JetStream context shared by the
// KV-backed job store and the work queue.
type NATSClient struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewNATSClient connects to NATS and creates a JetStream context.
func NewNATSClient(url string) (*NATSClient, error) {
	conn, err := nats.Connect(url,
		nats.Name("repodoc"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	slog.Info("NATS client initialized", logfields.URL(url))

	return &NATSClient{conn: conn, js: js}, nil
}

// Close closes the NATS connection.
func (c *NATSClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
