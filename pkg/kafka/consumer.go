package kafka

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/pkg/utils"
)

type Consumer struct {
	reader *kafka.Reader
}

// ReadFromKafka blocks until one message is available. Offsets are
// committed by the consumer group on successful read; failure handling
// lives in the worker (republish with attempt counter, then DLQ).
func (c *Consumer) ReadFromKafka(ctx context.Context) (*kafka.Message, error) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		metrics.KafkaSubscriberFailureTotal.WithLabelValues(c.reader.Config().Topic).Inc()
		return nil, err
	}
	return &m, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) reportLag(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if lag, err := c.reader.ReadLag(ctx); err == nil {
				metrics.KafkaConsumerLag.WithLabelValues(
					c.reader.Config().GroupID,
					c.reader.Config().Topic,
				).Set(float64(lag))
			}
		}
	}
}

func NewConsumer(ctx context.Context, topic string, brokers []string, groupID string) *Consumer {
	metrics.KafkaRebalancesTotal.WithLabelValues(groupID).Inc()
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MaxBytes: 10e6, // 10MB
		}),
	}
	go c.reportLag(ctx)
	return c
}

func NewConsumerTLS(ctx context.Context, topic, groupID string) (*Consumer, error) {
	kafkaURL := utils.GetEnv("KAFKA_URL")

	keypair, caCertPool, err := utils.LoadKafkaTLS()
	if err != nil {
		return nil, err
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS: &tls.Config{
			Certificates: []tls.Certificate{keypair},
			RootCAs:      caCertPool,
		},
	}

	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  []string{kafkaURL},
			Topic:    topic,
			GroupID:  groupID,
			Dialer:   dialer,
			MaxBytes: 10e6,
		}),
	}
	go c.reportLag(ctx)
	return c, nil
}

func NewConsumerFromEnv(ctx context.Context, topic, groupID string) (*Consumer, error) {
	state := utils.GetEnv("STATE")

	switch state {
	case "prod":
		log.Println("starting Kafka consumer in PROD mode (TLS)")
		return NewConsumerTLS(ctx, topic, groupID)
	case "dev":
		log.Println("starting Kafka consumer in DEV mode (local)")
		fallthrough
	default:
		broker := utils.GetEnv("KAFKA_BROKER")
		return NewConsumer(ctx, topic, []string{broker}, groupID), nil
	}
}
