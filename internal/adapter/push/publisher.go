package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// ErrNotConfirmed is returned when the broker nacks a publish.
var ErrNotConfirmed = errors.New("push message not confirmed by broker")

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("push publisher closed")

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConn interface {
	Channel() (amqpChannel, error)
	IsClosed() bool
	Close() error
}

type connAdapter struct {
	*amqp.Connection
}

func (c connAdapter) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

var dialAMQP = func(url string) (amqpConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return connAdapter{conn}, nil
}

// Publisher schedules system notifications by publishing them to a fanout
// exchange with publisher confirms. The broker connection is opened lazily and
// re-opened after failures.
type Publisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu       sync.Mutex
	conn     amqpConn
	ch       amqpChannel
	confirms chan amqp.Confirmation
	closed   bool
}

// NewPublisher creates a publisher for the exchange at url.
func NewPublisher(url, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{url: url, exchange: exchange, logger: logger}
}

// Schedule publishes msg and waits for the broker confirm.
func (p *Publisher) Schedule(ctx context.Context, msg model.PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.ensureChannel(); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Priority:     9,
		Timestamp:    time.Now().UTC(),
		MessageId:    msg.Data.OrderID + ":" + string(msg.Data.Type),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, "", false, false, pub); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish push message: %w", err)
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			p.resetLocked()
			return fmt.Errorf("push channel closed before confirm")
		}
		if !confirm.Ack {
			return ErrNotConfirmed
		}
		return nil
	case <-ctx.Done():
		// The pending confirm would be read by the next publish.
		p.resetLocked()
		return ctx.Err()
	}
}

func (p *Publisher) ensureChannel() error {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return nil
	}
	p.resetLocked()

	conn, err := dialAMQP(p.url)
	if err != nil {
		return fmt.Errorf("dial push broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open push channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enable confirm mode: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.logger.Info("push broker connected", slog.String("exchange", p.exchange))
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch = nil
	p.conn = nil
	p.confirms = nil
}

// Close releases the broker connection. It is safe on a publisher that
// never connected.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.resetLocked()
	return nil
}
