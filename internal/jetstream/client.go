package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

// Client wraps the NATS connection used for wrap-up ingestion (JetStream),
// the DLQ (JetStream) and the callback change feed (core NATS).
type Client struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

var _ ClientInterface = (*Client)(nil)

// NewClient connects to NATS and opens a JetStream context.
func NewClient(url, name string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, s *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if s != nil {
				fields = append(fields, zap.String("subject", s.Subject))
			}
			logger.Log.Error("NATS error", fields...)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{nc: nc, js: js}, nil
}

// SetupStream creates the stream or updates it when the core settings drifted.
func (c *Client) SetupStream(ctx context.Context, cfg *nats.StreamConfig) error {
	log := logger.FromContext(ctx).With(zap.String("stream", cfg.Name))

	info, err := c.js.StreamInfo(cfg.Name)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info for '%s': %w", cfg.Name, err)
	}

	if info == nil {
		if _, err = c.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to add stream '%s': %w", cfg.Name, err)
		}
		log.Info("Created stream", zap.Strings("subjects", cfg.Subjects))
		return nil
	}

	if streamConfigEqual(info.Config, *cfg) {
		log.Debug("Stream up to date")
		return nil
	}

	if _, err = c.js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("failed to update stream '%s': %w", cfg.Name, err)
	}
	log.Info("Updated stream", zap.Strings("subjects", cfg.Subjects))
	return nil
}

// SetupConsumer creates the durable consumer, recreating it when its settings drifted.
// JetStream does not allow changing most consumer fields in place.
func (c *Client) SetupConsumer(ctx context.Context, streamName string, cfg *nats.ConsumerConfig) error {
	log := logger.FromContext(ctx).With(zap.String("stream", streamName), zap.String("consumer", cfg.Durable))

	info, err := c.js.ConsumerInfo(streamName, cfg.Durable)
	if err != nil && !errors.Is(err, nats.ErrConsumerNotFound) {
		return fmt.Errorf("failed to get consumer info for stream '%s', consumer '%s': %w", streamName, cfg.Durable, err)
	}

	if info != nil {
		if consumerConfigEqual(info.Config, *cfg) {
			log.Debug("Consumer up to date")
			return nil
		}
		log.Warn("Consumer config mismatch, recreating",
			zap.String("provided_cfg", fmt.Sprintf("%+v", cfg)),
			zap.String("current_cfg", fmt.Sprintf("%+v", info.Config)),
		)
		if err = c.js.DeleteConsumer(streamName, cfg.Durable); err != nil {
			return fmt.Errorf("failed to delete consumer '%s' from stream '%s': %w", cfg.Durable, streamName, err)
		}
	}

	if _, err = c.js.AddConsumer(streamName, cfg); err != nil {
		return fmt.Errorf("failed to add consumer '%s' to stream '%s': %w", cfg.Durable, streamName, err)
	}
	log.Info("Consumer ready",
		zap.String("deliver_subject", cfg.DeliverSubject),
		zap.String("queue_group", cfg.DeliverGroup),
		zap.String("filter_subject", cfg.FilterSubject),
	)
	return nil
}

// SubscribePush binds a queue subscription to an existing durable push consumer.
func (c *Client) SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.QueueSubscribe(
		subject,
		group,
		handler,
		nats.Durable(consumer),
		nats.ManualAck(),
		nats.BindStream(stream),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}
	return sub, nil
}

// SubscribePull binds a pull subscription to an existing durable consumer.
func (c *Client) SubscribePull(streamName, subject, consumer string) (*nats.Subscription, error) {
	sub, err := c.js.PullSubscribe(subject, consumer, nats.Bind(streamName, consumer))
	if err != nil {
		return nil, fmt.Errorf("failed to create pull subscription for stream '%s', consumer '%s': %w", streamName, consumer, err)
	}
	return sub, nil
}

// Publish stores a message on JetStream with optional headers.
func (c *Client) Publish(subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range headers {
		msg.Header.Add(k, v)
	}

	if _, err := c.js.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish message to '%s': %w", subject, err)
	}
	return nil
}

// PublishCore sends a fire-and-forget message on core NATS. Used for change
// notifications, which are only hints to refetch and need no persistence.
func (c *Client) PublishCore(subject string, data []byte) error {
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish core message to '%s': %w", subject, err)
	}
	return nil
}

// SubscribeCore subscribes to a core NATS subject.
func (c *Client) SubscribeCore(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}
	return sub, nil
}

// IsConnected reports whether the underlying connection is currently up.
func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// NatsConn returns the underlying *nats.Conn
func (c *Client) NatsConn() *nats.Conn {
	return c.nc
}

// Close drains subscriptions and closes the NATS connection.
func (c *Client) Close() {
	if c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
}
