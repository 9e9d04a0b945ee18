package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("event publisher closed")
	// ErrQueueFull is returned when the sender cannot keep up.
	ErrQueueFull = errors.New("event queue full")
)

var (
	newAsyncProducer = func(brokers []string, cfg *sarama.Config) (sarama.AsyncProducer, error) {
		return sarama.NewAsyncProducer(brokers, cfg)
	}
	// reconnectDelay spaces producer creation attempts while brokers are down.
	reconnectDelay = 5 * time.Second
)

const queueSize = 256

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "orderboard"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Errors = true
	cfg.Producer.Timeout = 5 * time.Second
	cfg.Net.DialTimeout = 3 * time.Second
	cfg.Metadata.Retry.Max = 1
	return cfg
}

type queued struct {
	event model.OrderEvent
	msg   *sarama.ProducerMessage
}

// Publisher writes order lifecycle events to a Kafka topic keyed by order id,
// so events of one order keep their relative order within a partition.
// Publish only enqueues; a single sender owns the producer, which is created
// on first use. Delivery failures are logged.
type Publisher struct {
	brokers []string
	topic   string
	logger  *slog.Logger

	mu     sync.Mutex
	queue  chan queued
	closed bool
	done   chan struct{}
}

// NewPublisher creates a publisher for topic and starts its sender.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	p := &Publisher{
		brokers: brokers,
		topic:   topic,
		logger:  logger,
		queue:   make(chan queued, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues ev for delivery. It never waits for the broker.
func (p *Publisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- queued{event: ev, msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, hands the queued ones to the producer and
// waits for the producer to flush.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

func (p *Publisher) run() {
	defer close(p.done)

	var (
		producer sarama.AsyncProducer
		drained  chan struct{}
		retryAt  time.Time
	)
	for item := range p.queue {
		if producer == nil {
			if time.Now().Before(retryAt) {
				p.dropped(item.event, errors.New("kafka producer unavailable"))
				continue
			}
			created, err := newAsyncProducer(p.brokers, producerConfig())
			if err != nil {
				retryAt = time.Now().Add(reconnectDelay)
				p.dropped(item.event, fmt.Errorf("start kafka producer: %w", err))
				continue
			}
			producer = created
			drained = make(chan struct{})
			go p.drainErrors(producer, drained)
		}
		producer.Input() <- item.msg
	}

	if producer != nil {
		producer.AsyncClose()
		<-drained
	}
}

func (p *Publisher) drainErrors(producer sarama.AsyncProducer, done chan<- struct{}) {
	defer close(done)
	for perr := range producer.Errors() {
		var orderID string
		if perr.Msg != nil && perr.Msg.Key != nil {
			if key, err := perr.Msg.Key.Encode(); err == nil {
				orderID = string(key)
			}
		}
		p.logger.Warn("order event not delivered",
			slog.String("order_id", orderID),
			slog.String("error", perr.Err.Error()))
	}
}

func (p *Publisher) dropped(ev model.OrderEvent, err error) {
	p.logger.Warn("order event dropped",
		slog.String("type", ev.Type),
		slog.String("order_id", ev.OrderID),
		slog.String("error", err.Error()))
}
