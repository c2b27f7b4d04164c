// Package messaging publishes JSON events to a RabbitMQ topic exchange.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"desorientado_backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("messaging: not connected")

const maxReconnectAttempts = 10

// Publisher owns one connection and channel and redials in the background
// when the broker drops them.
type Publisher struct {
	url      string
	exchange string

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	closed     bool
	reconnects int
}

func NewPublisher(rawURL, exchange string) (*Publisher, error) {
	p := &Publisher{url: rawURL, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn, p.channel = conn, ch
	p.mu.Unlock()

	go p.handleReconnect(conn)

	logger.Log.Info("Connected to RabbitMQ", zap.String("url", sanitizeURL(p.url)), zap.String("exchange", p.exchange))
	return nil
}

func (p *Publisher) handleReconnect(conn *amqp.Connection) {
	amqpErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if amqpErr == nil {
		return
	}

	for attempt := range maxReconnectAttempts {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.reconnects++
		p.mu.Unlock()

		logger.Log.Warn("RabbitMQ connection lost, reconnecting",
			zap.String("reason", amqpErr.Reason),
			zap.Int("attempt", attempt+1))

		time.Sleep(min(time.Duration(1<<attempt)*time.Second, 30*time.Second))

		if err := p.connect(); err != nil {
			logger.Log.Error("RabbitMQ reconnect failed", zap.Error(err))
			continue
		}
		return
	}
	logger.Log.Error("Giving up on RabbitMQ reconnects", zap.Int("attempts", maxReconnectAttempts))
}

// PublishJSON sends data as a persistent JSON message with the given
// routing key.
func (p *Publisher) PublishJSON(ctx context.Context, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.RLock()
	ch, closed := p.channel, p.closed
	p.mu.RUnlock()
	if closed || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	return ch.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && !p.conn.IsClosed() && !p.closed
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// sanitizeURL drops credentials so the URL can be logged.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	return u.String()
}
