package eventbroker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

func TestNewMessage_CarriesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	evt := domain.FollowEvent{FollowerID: "me", FollowingID: "anna", OccurredAt: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	msg, err := newMessage(ctx, domain.SubjectFollowCreated, evt)
	require.NoError(t, err)

	assert.Equal(t, "follow.created", msg.Subject)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", msg.Header.Get("traceparent"))

	var decoded domain.FollowEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, evt, decoded)
}
