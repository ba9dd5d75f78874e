package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/astrogoddess/storefront/internal/infrastructure/event"
	"github.com/astrogoddess/storefront/internal/infrastructure/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// ErrNack is returned when the broker rejects a published message
var ErrNack = errors.New("publish NACK from broker")

// channel is the subset of *amqp.Channel the publisher uses
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Config holds the broker settings for captured bookings
type Config struct {
	URL            string
	Exchange       string
	RoutingKey     string
	PublishTimeout time.Duration
}

// AMQPPublisher forwards captured bookings to a RabbitMQ topic exchange
// and waits for a publisher confirm on every message.
type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         channel
	acks       <-chan amqp.Confirmation
	mu         sync.Mutex
	exchange   string
	routingKey string
	timeout    time.Duration
	serializer *event.Serializer
	logger     *zap.Logger
}

// DialAMQPPublisher connects, declares a durable topic exchange and enables confirms
func DialAMQPPublisher(cfg Config, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	p := newAMQPPublisher(ch, acks, cfg, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, acks <-chan amqp.Confirmation, cfg Config, logger *zap.Logger) *AMQPPublisher {
	timeout := cfg.PublishTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	serializer := event.NewSerializer()
	serializer.Register(cart.EventTypeBookingCaptured, &cart.BookingCapturedEvent{})

	return &AMQPPublisher{
		ch:         ch,
		acks:       acks,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		timeout:    timeout,
		serializer: serializer,
		logger:     logger,
	}
}

// Handle implements shared.EventHandler
func (p *AMQPPublisher) Handle(ctx context.Context, evt shared.DomainEvent) error {
	ctx, span := telemetry.StartSpan(ctx, "booking.publish",
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", p.exchange),
		attribute.String("messaging.message.id", evt.EventID().String()),
	)
	defer span.End()

	body, err := p.serializer.Serialize(evt)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := p.publish(ctx, evt.EventID().String(), body); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to publish %s: %w", evt.EventType(), err)
	}
	p.logger.Info("booking published",
		zap.String("event_id", evt.EventID().String()),
		zap.String("exchange", p.exchange),
		zap.String("routing_key", p.routingKey),
	)
	return nil
}

// EventTypes implements shared.EventHandler
func (p *AMQPPublisher) EventTypes() []string {
	return []string{cart.EventTypeBookingCaptured}
}

// Ping reports whether the broker connection is open
func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("broker connection is closed")
	}
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

// publish sends body and waits for its confirm. Confirms arrive in publish
// order, so publishes are serialised.
func (p *AMQPPublisher) publish(ctx context.Context, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// trace context travels in the message headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make(amqp.Table, len(carrier))
	for k, v := range carrier {
		headers[k] = v
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return errors.New("confirm channel closed")
		}
		if !conf.Ack {
			return ErrNack
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ shared.EventHandler = (*AMQPPublisher)(nil)
