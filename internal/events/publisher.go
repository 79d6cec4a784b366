// Package events publishes trip lifecycle events to RabbitMQ.
//
// Events go to a durable topic exchange with the event type as routing key
// (trip.created, trip.completed, trips.consolidated). Every publish waits for
// a broker confirm.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/welfare-transport/backend/internal/domain"
)

const confirmTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events on one confirm-mode channel.
//
// A dispatcher goroutine drains the confirm stream and hands each confirm to
// the publish waiting on its delivery tag. Confirms for publishes that already
// gave up are dropped, so a late ack or nack is never credited to a later
// message and the library's confirm reader is never left blocked.
type AMQPPublisher struct {
	exchange string
	log      *slog.Logger

	mu   sync.Mutex // serialises sequence number and publish
	ch   channel
	conn *amqp.Connection

	pendingMu sync.Mutex
	pending   map[uint64]chan bool
	drained   bool
}

// Dial connects to url, declares exchange as a durable topic exchange, and
// puts the publishing channel in confirm mode.
func Dial(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("events.Dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events.Dial: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events.Dial: declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events.Dial: enable confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	p := newPublisher(ch, confirms, exchange, log)
	p.conn = conn
	log.Info("rabbitmq connected", "exchange", exchange)
	return p, nil
}

func newPublisher(ch channel, confirms <-chan amqp.Confirmation, exchange string, log *slog.Logger) *AMQPPublisher {
	p := &AMQPPublisher{
		exchange: exchange,
		log:      log,
		ch:       ch,
		pending:  make(map[uint64]chan bool),
	}
	go p.dispatch(confirms)
	return p
}

// dispatch routes confirms to their waiting publishes until the stream
// closes, then fails every publish still waiting.
func (p *AMQPPublisher) dispatch(confirms <-chan amqp.Confirmation) {
	for c := range confirms {
		p.pendingMu.Lock()
		wait, ok := p.pending[c.DeliveryTag]
		delete(p.pending, c.DeliveryTag)
		p.pendingMu.Unlock()

		if !ok {
			p.log.Warn("dropping confirm for abandoned publish", "delivery_tag", c.DeliveryTag, "ack", c.Ack)
			continue
		}
		wait <- c.Ack
	}

	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	p.drained = true
	for tag, wait := range p.pending {
		close(wait)
		delete(p.pending, tag)
	}
}

// Publish sends e as a persistent JSON message and waits for the broker's
// confirm, at most confirmTimeout.
func (p *AMQPPublisher) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events.Publish: encode %s: %w", e.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	tag, wait, err := p.send(ctx, e, body)
	if err != nil {
		return err
	}

	select {
	case ack, ok := <-wait:
		if !ok {
			return errors.New("events.Publish: confirm stream closed")
		}
		if !ack {
			return fmt.Errorf("events.Publish: %s not acknowledged", e.Type)
		}
	case <-ctx.Done():
		p.forget(tag)
		return fmt.Errorf("events.Publish: waiting for confirm: %w", ctx.Err())
	}

	p.log.DebugContext(ctx, "event published", "event", string(e.Type), "delivery_tag", tag, "bytes", len(body))
	return nil
}

// send registers a waiter for the next delivery tag and publishes the message.
func (p *AMQPPublisher) send(ctx context.Context, e domain.Event, body []byte) (uint64, chan bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return 0, nil, errors.New("events.Publish: publisher is closed")
	}

	tag := p.ch.GetNextPublishSeqNo()
	wait := make(chan bool, 1)

	p.pendingMu.Lock()
	if p.drained {
		p.pendingMu.Unlock()
		return 0, nil, errors.New("events.Publish: confirm stream closed")
	}
	p.pending[tag] = wait
	p.pendingMu.Unlock()

	err := p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	})
	if err != nil {
		p.forget(tag)
		return 0, nil, fmt.Errorf("events.Publish: %w", err)
	}
	return tag, wait, nil
}

func (p *AMQPPublisher) forget(tag uint64) {
	p.pendingMu.Lock()
	delete(p.pending, tag)
	p.pendingMu.Unlock()
}

// Close closes the channel and connection. Later publishes fail.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
		p.conn = nil
	}
	return err
}
