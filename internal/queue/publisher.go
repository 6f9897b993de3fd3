package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const authQueueName = "auth.events"

// Publisher publishes AuthEvents to RabbitMQ. It keeps one connection
// and channel, re-dialing lazily after failures. All publishing is
// best-effort: errors are logged and swallowed so the auth flows never
// block on the broker.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the given broker URL, or nil
// when the URL is empty (events disabled).
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// Emit builds and publishes an AuthEvent. Safe to call on a nil
// publisher.
func (p *Publisher) Emit(ctx context.Context, eventType string, userID uint64, username, detail string) {
	if p == nil {
		return
	}
	ev := AuthEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		UserID:   userID,
		Username: username,
		Detail:   detail,
		At:       time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.publish(ctx, ev); err != nil {
		log.Printf("queue: publish %s failed: %v", eventType, err)
	}
}

func (p *Publisher) publish(ctx context.Context, ev AuthEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", authQueueName, false, false, pub); err != nil {
		// Drop the broken channel; next Emit re-dials.
		p.reset()
		return err
	}
	return nil
}

// channel returns the cached channel, dialing and declaring the queue
// when needed. Caller holds p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(authQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
