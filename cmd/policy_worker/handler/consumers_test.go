package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/pkg/config"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
	"github.com/albertniderhofer/S3PolicyManager/pkg/workflow"
)

type fakeEventPublisher struct {
	republishErr error
	published    []string
	headers      [][]kafkago.Header
}

func (f *fakeEventPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeEventPublisher) PublishWithHeaders(ctx context.Context, topic string, key, value []byte, headers []kafkago.Header) error {
	if f.republishErr != nil {
		return f.republishErr
	}
	f.published = append(f.published, topic)
	f.headers = append(f.headers, headers)
	return nil
}

// failingMessage builds a message whose envelope passes Validate but
// whose policy id cannot be parsed, so the engine reports a processing
// error without needing any backing stores.
func failingMessage(t *testing.T, headers []kafkago.Header) *kafkago.Message {
	t.Helper()
	env := types.EventEnvelope{
		EventType:   types.EventDelete,
		PolicyID:    "not-a-uuid",
		TenantID:    uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		TriggeredBy: "tester",
	}
	value, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &kafkago.Message{Key: []byte(env.PolicyID), Value: value, Headers: headers}
}

func testEngine() *workflow.Engine {
	return workflow.NewEngine(nil, nil, nil, nil, zap.NewNop(),
		noop.NewTracerProvider().Tracer("test"), time.Second)
}

func testSpan(ctx context.Context) (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("test").Start(ctx, "test")
}

func TestFailedEventRedeliveredWithIncrementedAttempt(t *testing.T) {
	cfg := config.Default()
	producer := &fakeEventPublisher{}
	m := failingMessage(t, []kafkago.Header{
		{Key: attemptHeader, Value: []byte("2")},
	})

	ctx, span := testSpan(context.Background())
	defer span.End()
	processMessage(ctx, m, producer, testEngine(), cfg, zap.NewNop(), span)

	if len(producer.published) != 1 || producer.published[0] != cfg.Kafka.EventsTopic {
		t.Fatalf("expected one republish to %s, got %v", cfg.Kafka.EventsTopic, producer.published)
	}
	var attempt string
	for _, h := range producer.headers[0] {
		if h.Key == attemptHeader {
			attempt = string(h.Value)
		}
	}
	if attempt != "3" {
		t.Fatalf("expected attempt header 3, got %q", attempt)
	}
}

func TestRedeliverFailureFallsBackToDLQ(t *testing.T) {
	cfg := config.Default()
	producer := &fakeEventPublisher{republishErr: errors.New("broker unavailable")}
	m := failingMessage(t, nil)

	ctx, span := testSpan(context.Background())
	defer span.End()
	processMessage(ctx, m, producer, testEngine(), cfg, zap.NewNop(), span)

	// The offset is committed, a failed republish must not drop the event.
	if len(producer.published) != 1 || producer.published[0] != cfg.Kafka.DLQTopic {
		t.Fatalf("expected DLQ fallback to %s, got %v", cfg.Kafka.DLQTopic, producer.published)
	}
}

func TestExhaustedDeliveriesGoToDLQ(t *testing.T) {
	cfg := config.Default()
	producer := &fakeEventPublisher{}
	m := failingMessage(t, []kafkago.Header{
		{Key: attemptHeader, Value: []byte("5")},
	})

	ctx, span := testSpan(context.Background())
	defer span.End()
	processMessage(ctx, m, producer, testEngine(), cfg, zap.NewNop(), span)

	if len(producer.published) != 1 || producer.published[0] != cfg.Kafka.DLQTopic {
		t.Fatalf("expected DLQ publish to %s, got %v", cfg.Kafka.DLQTopic, producer.published)
	}
}

func TestMalformedEnvelopeGoesStraightToDLQ(t *testing.T) {
	cfg := config.Default()
	producer := &fakeEventPublisher{}
	m := &kafkago.Message{Value: []byte(`{"eventType":"create"}`)}

	ctx, span := testSpan(context.Background())
	defer span.End()
	processMessage(ctx, m, producer, testEngine(), cfg, zap.NewNop(), span)

	if len(producer.published) != 1 || producer.published[0] != cfg.Kafka.DLQTopic {
		t.Fatalf("expected DLQ publish to %s, got %v", cfg.Kafka.DLQTopic, producer.published)
	}
}
