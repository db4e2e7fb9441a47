package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Wait window for a broker Return or Confirm after each publish.
const confirmWait = 5 * time.Second

// Publisher publishes JSON bodies to durable queues through the default
// exchange with publisher confirms and mandatory routing. It serializes
// publishes on one channel, so a confirmation always belongs to the publish
// that is waiting for it.
type Publisher struct {
	mu sync.Mutex

	client *Client
	ch     *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return

	declared map[string]bool
	lg       zerolog.Logger
}

func NewPublisher(url string, lg zerolog.Logger) (*Publisher, error) {
	client, err := Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := client.Channel()
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = client.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	p := &Publisher{
		client:   client,
		ch:       ch,
		declared: map[string]bool{},
		lg:       lg.With().Str("component", "rabbitmq_publisher").Logger(),
	}
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}
	return nil
}

// Healthy reports whether the publisher can still reach the broker. Used
// as a readiness check.
func (p *Publisher) Healthy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		return fmt.Errorf("publisher channel closed")
	}
	return nil
}

// Publish sends body to the named durable queue and waits for the broker to
// confirm it. messageID must be stable across retries of the same logical
// message (the outbox passes its row's message id) so downstream consumers
// can deduplicate.
func (p *Publisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	if strings.TrimSpace(queue) == "" {
		return errors.New("missing queue")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher closed")
	}

	// Declaring on the publish side too means enrichers can run before the
	// dispatch consumer has ever connected.
	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare: %w", err)
		}
		p.declared[queue] = true
	}

	err := p.ch.PublishWithContext(
		ctx,
		"", // default exchange: routing key addresses the queue directly
		queue,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	select {
	case ret := <-p.returnCh:
		// A returned message is still confirmed; drain that confirmation so
		// the next publish does not read a stale ack.
		select {
		case <-p.confirmCh:
		case <-time.After(100 * time.Millisecond):
		}
		return fmt.Errorf("no route to queue %s (code=%d text=%s)", ret.RoutingKey, ret.ReplyCode, ret.ReplyText)
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return fmt.Errorf("publish to %s nacked by broker", queue)
		}
		return nil
	case <-time.After(confirmWait):
		return fmt.Errorf("publish to %s: confirm timeout", queue)
	case <-ctx.Done():
		return ctx.Err()
	}
}
