// Package events publishes checkout lifecycle events to Kafka for downstream
// consumers (analytics, the notification pipeline).
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/models"
)

// EventType labels a checkout event.
type EventType string

const (
	EventTypeOrderCreated     EventType = "order.created"
	EventTypePaymentCompleted EventType = "payment.completed"
	EventTypePaymentFailed    EventType = "payment.failed"
)

// CheckoutEvent is the envelope written to the checkout topic.
type CheckoutEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher emits checkout events.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishPaymentCompleted(ctx context.Context, payment *models.Payment) error
	PublishPaymentFailed(ctx context.Context, payment *models.Payment) error
	Close() error
}

// KafkaPublisher publishes checkout events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logrus.Entry) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.CheckoutTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.WithField("component", "event-publisher"),
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.publish(ctx, EventTypeOrderCreated, order.ID, order.UserID, data)
}

// PublishPaymentCompleted publishes a settlement success event.
func (p *KafkaPublisher) PublishPaymentCompleted(ctx context.Context, payment *models.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	return p.publish(ctx, EventTypePaymentCompleted, payment.OrderID, payment.UserID, data)
}

// PublishPaymentFailed publishes a settlement failure event.
func (p *KafkaPublisher) PublishPaymentFailed(ctx context.Context, payment *models.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	return p.publish(ctx, EventTypePaymentFailed, payment.OrderID, payment.UserID, data)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType EventType, orderID, userID int64, data []byte) error {
	event := &CheckoutEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrderID:   orderID,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Key by order id so events for one order stay in partition order.
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		}).Error("Failed to publish event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	}).Info("Event published")

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}
