// Package nats connects sentry to NATS JetStream for the shared dead letter
// stream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/messaging"
)

// Config describes how to reach the NATS server.
type Config struct {
	URL  string
	Name string

	// MaxReconnects of -1 retries forever.
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	Logger *slog.Logger
}

// DefaultConfig targets a local server and reconnects forever.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "sentry",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

func (c Config) options(logger *slog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name(c.Name),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.Timeout(c.Timeout),
		nats.DisconnectErrHandler(func(conn *nats.Conn, err error) {
			if err != nil {
				logger.Warn("lost nats connection", slog.String("server", conn.ConnectedUrlRedacted()), logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats connection restored", slog.String("server", conn.ConnectedUrlRedacted()))
		}),
	}
}

// DLQStream keeps dropped records for a week so an operator can inspect and
// replay them by hand.
var DLQStream = jetstream.StreamConfig{
	Name:      "SENTRY_DLQ",
	Subjects:  []string{messaging.SubjectDLQAll},
	MaxAge:    7 * 24 * time.Hour,
	MaxBytes:  256 * 1024 * 1024,
	MaxMsgs:   100000,
	Retention: jetstream.LimitsPolicy,
	Storage:   jetstream.FileStorage,
}

// JetStreamClient is a NATS connection with a JetStream context on top.
type JetStreamClient struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewJetStreamClient dials NATS and opens JetStream.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL, cfg.options(logger)...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}
	return &JetStreamClient{conn: conn, js: js}, nil
}

// CreateOrUpdateStream makes sure the stream exists with cfg's limits.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if cfg.Name == "" || len(cfg.Subjects) == 0 {
		return nil, errors.New("stream needs a name and at least one subject")
	}
	stream, err := c.js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("declare stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// PublishSync publishes data and waits for the stream to persist it.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	ack, err := c.js.Publish(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", subject, err)
	}
	return ack, nil
}

// IsConnected reports whether the underlying connection is up.
func (c *JetStreamClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains pending publishes before closing the connection.
func (c *JetStreamClient) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		c.conn.Close()
		return err
	}
	return nil
}
