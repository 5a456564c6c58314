// Package audit emits the fiscal audit trail of the checkout lifecycle. Every
// phase-relevant event is published to kafka keyed by cart id so one order's
// events stay ordered. Publishing is best effort from the checkout's point of
// view: a broker outage must never block or fail a phase transition.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventCheckoutSubmitted = "checkout.submitted"
	EventPaymentCaptured   = "payment.captured"
	EventFinalizeWarning   = "finalize.warning"
	EventReceiptPrinted    = "receipt.printed"
	EventReceiptSkipped    = "receipt.skipped"
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutCancelled = "checkout.cancelled"
)

type Event struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	TableID     string    `json:"table_id"`
	CartID      string    `json:"cart_id,omitempty"`
	CashierID   string    `json:"cashier_id"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Method      string    `json:"payment_method"`
	TotalAmount float64   `json:"total_amount"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := event.CartID
	if key == "" {
		key = event.SessionID
	}

	msg := kafka.Message{
		Key:   []byte(key), // cart_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards every event. Used when no brokers are configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
