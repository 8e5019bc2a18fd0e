// Package rabbitmq publishes complaint events to a RabbitMQ exchange for
// downstream consumers (reporting, city work-order systems).
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wastewatch/backend/internal/models"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

const (
	exchangeKind   = "direct"
	connectTimeout = 30 * time.Second
)

// Publisher publishes JSON messages to a durable direct exchange and
// reconnects when the connection was closed underneath it.
type Publisher struct {
	mu       sync.Mutex
	amqpURL  string
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher connects and declares the exchange.
func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	p := &Publisher{
		amqpURL:  amqpURL,
		exchange: exchange,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(ctx); err != nil {
		return nil, err
	}
	log.WithField("exchange", exchange).Info("connected to rabbitmq")
	return p, nil
}

// Publish implements the complaint event sink; the routing key is the
// event type.
func (p *Publisher) Publish(ctx context.Context, event models.ComplaintEvent) error {
	publishing, err := NewPublishing(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, event.Type, publishing)
}

// NewPublishing encodes an event as a persistent JSON message.
func NewPublishing(event models.ComplaintEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message to JSON: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		MessageId:    event.Complaint.ImageID + ":" + event.Type,
		Type:         event.Type,
	}, nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}

// IsConnected reports whether the publisher has an open connection.
func (p *Publisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	conn, err := amqp.Dial(p.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		exchangeKind,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ctx.Err(); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("context done while connecting: %w", err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func isConnClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "channel/connection is not open")
}

func (p *Publisher) publish(ctx context.Context, routingKey string, publishing amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.channel == nil {
		p.closeLocked()
		if err := p.connectLocked(ctx); err != nil {
			return err
		}
	}

	err := p.channel.Publish(p.exchange, routingKey, false, false, publishing)
	if err != nil && isConnClosedErr(err) {
		log.WithError(err).Warn("rabbitmq connection lost, reconnecting")
		p.closeLocked()
		if connErr := p.connectLocked(ctx); connErr != nil {
			return fmt.Errorf("failed to publish message: %w (reconnect failed: %v)", err, connErr)
		}
		err = p.channel.Publish(p.exchange, routingKey, false, false, publishing)
	}
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
