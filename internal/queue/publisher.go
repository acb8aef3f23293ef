package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends user events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev UserEvent) error
	Close() error
}

// Nop drops every event. It is used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, UserEvent) error { return nil }
func (Nop) Close() error                             { return nil }

var (
	// ErrBacklogFull is returned when events arrive faster than the broker
	// accepts them and the buffer is exhausted. The event is dropped.
	ErrBacklogFull = errors.New("queue: event backlog full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("queue: publisher closed")
)

const (
	defaultBacklog     = 256
	defaultDialTimeout = 5 * time.Second
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable queue on
// the default exchange. Publish only enqueues; a single goroutine owns the
// broker connection, dials lazily with a bounded timeout and reconnects
// after a failure. Events that cannot be delivered are logged and dropped.
type AMQPPublisher struct {
	queue       string
	log         *slog.Logger
	dialTimeout time.Duration
	open        func(ctx context.Context) (channel, func() error, error)

	events    chan UserEvent
	done      chan struct{}
	startOnce sync.Once

	mu     sync.RWMutex
	closed bool

	// owned by the run goroutine
	ch        channel
	closeConn func() error
}

// NewAMQPPublisher returns a publisher for url. No connection is made until
// the first event is sent.
func NewAMQPPublisher(url, queue string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{
		queue:       queue,
		log:         log,
		dialTimeout: defaultDialTimeout,
		events:      make(chan UserEvent, defaultBacklog),
		done:        make(chan struct{}),
		open: func(ctx context.Context) (channel, func() error, error) {
			timeout := defaultDialTimeout
			if dl, ok := ctx.Deadline(); ok {
				timeout = time.Until(dl)
			}
			conn, err := amqp.DialConfig(url, amqp.Config{
				Heartbeat: 10 * time.Second,
				Locale:    "en_US",
				Dial:      amqp.DefaultDial(timeout),
			})
			if err != nil {
				return nil, nil, fmt.Errorf("dial: %w", err)
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("channel open: %w", err)
			}
			return ch, conn.Close, nil
		},
	}
}

// Publish enqueues ev without waiting on the broker. It fails only when the
// backlog is full or the publisher is closed.
func (p *AMQPPublisher) Publish(_ context.Context, ev UserEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	p.startOnce.Do(func() { go p.run() })

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Close stops accepting events, waits for the queued ones to be attempted
// and closes the connection.
func (p *AMQPPublisher) Close() error {
	p.startOnce.Do(func() { go p.run() })

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	<-p.done
	return nil
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		if err := p.send(ev); err != nil {
			p.log.Warn("rabbitmq: publish failed", "queue", p.queue, "type", ev.Type, "err", err)
		}
	}
	p.reset()
}

func (p *AMQPPublisher) send(ev UserEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
	defer cancel()

	if p.ch == nil {
		if err := p.connect(ctx); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return err
	}
	return nil
}

// connect opens a channel and declares the queue.
func (p *AMQPPublisher) connect(ctx context.Context) error {
	ch, closeConn, err := p.open(ctx)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("queue declare: %w", err)
	}
	p.ch, p.closeConn = ch, closeConn
	return nil
}

// reset drops the current channel and connection.
func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}
