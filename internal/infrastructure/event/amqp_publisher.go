package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Envelope is the wire format of events sent to the broker
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a domain event for publication
func NewEnvelope(event shared.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return &Envelope{
		EventID:       event.EventID().String(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID().String(),
		AggregateType: event.AggregateType(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	}, nil
}

// amqpChannel is the subset of *amqp.Channel the publisher needs
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards domain events to a topic exchange. Messages are routed
// by shared.RoutingKey, so consumers can bind patterns like order.#.
// It is subscribed to the in-memory bus as a handler.
type AMQPPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    amqpChannel
	exchange   string
	eventTypes []string
	logger     *zap.Logger
}

// DialAMQPPublisher connects to the broker and declares the exchange
func DialAMQPPublisher(url, exchange string, eventTypes []string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	p, err := newAMQPPublisher(ch, exchange, eventTypes, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, exchange string, eventTypes []string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{
		channel:    ch,
		exchange:   exchange,
		eventTypes: eventTypes,
		logger:     logger.Named("amqp"),
	}, nil
}

// Handle publishes the event as a persistent JSON message
func (p *AMQPPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(pubCtx,
		p.exchange,
		shared.RoutingKey(event.EventType()),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    envelope.EventID,
			Timestamp:    envelope.OccurredAt,
			Type:         envelope.EventType,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}

	p.logger.Debug("published event",
		zap.String("event_type", envelope.EventType),
		zap.String("routing_key", shared.RoutingKey(envelope.EventType)),
		zap.String("aggregate_id", envelope.AggregateID))
	return nil
}

// EventTypes returns the event types forwarded to the broker
func (p *AMQPPublisher) EventTypes() []string {
	return p.eventTypes
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ shared.EventHandler = (*AMQPPublisher)(nil)
