package handler

import (
	"context"
	"encoding/json"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/pkg/config"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
	"github.com/albertniderhofer/S3PolicyManager/pkg/workflow"
)

const attemptHeader = "x-delivery-attempt"

// eventPublisher is the slice of the Kafka producer the consumer needs.
type eventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	PublishWithHeaders(ctx context.Context, topic string, key, value []byte, headers []kafkago.Header) error
}

// HandleEvents is the worker's consume loop. Failed events are
// republished with an incremented delivery-attempt header until the
// configured maximum, then routed to the DLQ; malformed envelopes go to
// the DLQ immediately instead of being silently dropped.
func HandleEvents(
	ctx context.Context,
	consumer *kafka.Consumer,
	producer *kafka.Producer,
	engine *workflow.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	tracer trace.Tracer,
) {
	topic := cfg.Kafka.EventsTopic
	logger.Info("Starting Kafka consumer",
		zap.String("topic", topic),
		zap.String("group", cfg.Kafka.ConsumerGroup),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down policy event consumer", zap.String("topic", topic))
			return

		default:
			m, err := consumer.ReadFromKafka(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Error reading Kafka message", zap.String("topic", topic), zap.Error(err))
				continue
			}

			msgCtx := ctx
			if len(m.Headers) > 0 {
				carrier := make(map[string]string)
				for _, h := range m.Headers {
					carrier[h.Key] = string(h.Value)
				}
				msgCtx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(carrier))
			}

			eventCtx, span := tracer.Start(msgCtx, "handle-policy-event")
			processMessage(eventCtx, m, producer, engine, cfg, logger, span)
			span.End()
		}
	}
}

func processMessage(
	ctx context.Context,
	m *kafkago.Message,
	producer eventPublisher,
	engine *workflow.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	span trace.Span,
) {
	var env types.EventEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal event envelope")
		logger.Error("Failed to unmarshal policy event",
			zap.ByteString("raw", m.Value),
			zap.Error(err),
		)
		sendToDLQ(ctx, producer, cfg, m, "unmarshal", logger)
		return
	}
	if err := env.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event envelope")
		logger.Error("Malformed policy event envelope",
			zap.ByteString("raw", m.Value),
			zap.Error(err),
		)
		sendToDLQ(ctx, producer, cfg, m, "malformed_envelope", logger)
		return
	}

	logger.Info("Policy event received",
		zap.String("event_type", string(env.EventType)),
		zap.String("policy_id", env.PolicyID),
		zap.String("tenant_id", env.TenantID),
		zap.Int64("offset", m.Offset),
	)

	err := engine.ProcessEvent(ctx, &env)
	if err == nil {
		return
	}
	span.RecordError(err)

	attempt := deliveryAttempt(m)
	if attempt >= cfg.Kafka.MaxDeliveries {
		span.SetStatus(codes.Error, "delivery attempts exhausted")
		logger.Error("Policy event exhausted delivery attempts, sending to DLQ",
			zap.String("policy_id", env.PolicyID),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		sendToDLQ(ctx, producer, cfg, m, "max_deliveries", logger)
		return
	}

	logger.Warn("Policy event failed, redelivering",
		zap.String("policy_id", env.PolicyID),
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
	headers := carryHeaders(ctx, m, attempt+1)
	if pubErr := producer.PublishWithHeaders(ctx, cfg.Kafka.EventsTopic, m.Key, m.Value, headers); pubErr != nil {
		// The offset is already committed; losing the republish would
		// lose the event, so it falls back to the DLQ.
		logger.Error("Failed to redeliver policy event, sending to DLQ", zap.Error(pubErr))
		sendToDLQ(ctx, producer, cfg, m, "redeliver_failed", logger)
	}
}

func sendToDLQ(ctx context.Context, producer eventPublisher, cfg *config.Config, m *kafkago.Message, reason string, logger *zap.Logger) {
	metrics.PolicyEventsDLQTotal.WithLabelValues(reason).Inc()
	if err := producer.Publish(ctx, cfg.Kafka.DLQTopic, m.Key, m.Value); err != nil {
		logger.Error("Failed to publish to DLQ",
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func deliveryAttempt(m *kafkago.Message) int {
	for _, h := range m.Headers {
		if h.Key == attemptHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 1
}

func carryHeaders(ctx context.Context, m *kafkago.Message, nextAttempt int) []kafkago.Header {
	headers := []kafkago.Header{
		{Key: attemptHeader, Value: []byte(strconv.Itoa(nextAttempt))},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
