// Package events publishes domain events to NATS with trace context in the message headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// MetricStored is emitted once per persisted call metric.
type MetricStored struct {
	ID                     string    `json:"id"`
	RunID                  *string   `json:"run_id,omitempty"`
	CarrierMC              *string   `json:"carrier_mc,omitempty"`
	LoadID                 *string   `json:"load_id,omitempty"`
	Outcome                string    `json:"outcome"`
	Sentiment              *string   `json:"sentiment,omitempty"`
	NegotiationPerformance *float64  `json:"negotiation_performance,omitempty"`
	RateDifference         *float64  `json:"rate_difference,omitempty"`
	CallStatus             *string   `json:"call_status,omitempty"`
	StoredAt               time.Time `json:"stored_at"`
}

type Publisher interface {
	PublishMetricStored(ctx context.Context, event MetricStored) error
	Close()
}

// NoopPublisher is used when NATS_URL is empty.
type NoopPublisher struct{}

func (NoopPublisher) PublishMetricStored(context.Context, MetricStored) error { return nil }
func (NoopPublisher) Close()                                                   {}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

type NATSPublisher struct {
	conn    msgPublisher
	subject string
	close   func()
	logger  *logrus.Logger
}

// NewNATSPublisher connects to url and publishes on subject. Reconnects are unbounded.
func NewNATSPublisher(url, subject string, logger *logrus.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("carrier-sales-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"url":     nc.ConnectedUrl(),
		"subject": subject,
	}).Info("NATS publisher connected")

	return &NATSPublisher{
		conn:    nc,
		subject: subject,
		close:   nc.Close,
		logger:  logger,
	}, nil
}

func (p *NATSPublisher) PublishMetricStored(ctx context.Context, event MetricStored) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}

	p.logger.WithFields(logrus.Fields{
		"subject":   p.subject,
		"metric_id": event.ID,
	}).Debug("Published metric event")
	return nil
}

func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
