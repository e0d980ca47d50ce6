package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingConn struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingConn) PublishMsg(msg *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestNATSPublisher_PublishMetricStored(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	conn := &recordingConn{}
	p := &NATSPublisher{conn: conn, subject: "carrier_sales.metrics.stored", logger: logrus.New()}

	perf := 100.0
	err := p.PublishMetricStored(ctx, MetricStored{
		ID:                     "m-1",
		Outcome:                "booked",
		NegotiationPerformance: &perf,
		StoredAt:               time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "carrier_sales.metrics.stored", msg.Subject)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", msg.Header.Get("traceparent"))

	var decoded MetricStored
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "m-1", decoded.ID)
	assert.Equal(t, "booked", decoded.Outcome)
	require.NotNil(t, decoded.NegotiationPerformance)
	assert.Equal(t, 100.0, *decoded.NegotiationPerformance)
	assert.Nil(t, decoded.RateDifference)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	conn := &recordingConn{err: errors.New("connection closed")}
	p := &NATSPublisher{conn: conn, subject: "s", logger: logrus.New()}

	err := p.PublishMetricStored(context.Background(), MetricStored{ID: "m-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	assert.Equal(t, "", carrier.Get("missing"))
	assert.Nil(t, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, carrier.Keys())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishMetricStored(context.Background(), MetricStored{}))
	p.Close()
}
