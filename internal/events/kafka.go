package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MessageWriter is the slice of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w MessageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// PublishSaleCompleted keys messages by partition key so one session's
// sales stay ordered.
func (p *KafkaPublisher) PublishSaleCompleted(ctx context.Context, ev EventEnvelope) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal SaleCompleted envelope: %w", err)
	}

	headers := []kafka.Header{
		{Key: "eventName", Value: []byte(ev.EventName)},
		{Key: "eventId", Value: []byte(ev.EventID)},
	}
	if ev.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlationId", Value: []byte(ev.CorrelationID)})
	}
	headers = injectTraceHeaders(ctx, headers)

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.w.WriteMessages(pubCtx, kafka.Message{
		Key:     []byte(ev.PartitionKey),
		Value:   body,
		Time:    ev.OccurredAt,
		Headers: headers,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
