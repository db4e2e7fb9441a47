package rabbitmq

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one delivery body. Returning nil acknowledges the
// delivery; returning any error rejects it without requeue. There is no
// per-message retry and no dead-letter target: a failed message is dropped
// after one attempt so a poison payload can never block the queue.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, body []byte) error

func (f HandlerFunc) Handle(ctx context.Context, body []byte) error { return f(ctx, body) }

// ConsumerConfig configures one queue subscription.
type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int           // unacked delivery window; 0 means 1
	Tag      string        // consumer tag; defaults to the queue name
	Retry    time.Duration // flat delay between connect attempts; 0 means 5s
}

const defaultRetryDelay = 5 * time.Second

// Consumer runs the "connect, declare, consume, ack/nack" lifecycle for a
// single durable queue. Each Consumer owns its connection and channel; there
// is no shared broker state between consumers, and the supervisor reconnects
// forever at a fixed delay until the broker is reachable or Stop is called.
type Consumer struct {
	cfg     ConsumerConfig
	handler Handler
	lg      zerolog.Logger

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}

	client     *Client
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

func NewConsumer(cfg ConsumerConfig, h Handler, lg zerolog.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.Retry <= 0 {
		cfg.Retry = defaultRetryDelay
	}
	if strings.TrimSpace(cfg.Tag) == "" {
		cfg.Tag = cfg.Queue
	}
	return &Consumer{
		cfg:     cfg,
		handler: h,
		lg: lg.With().
			Str("component", "rabbitmq_consumer").
			Str("queue", cfg.Queue).
			Logger(),
	}
}

// Start launches the supervisor goroutine. It is a no-op if the consumer is
// already running.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if c.handler == nil {
		return fmt.Errorf("nil handler")
	}
	if strings.TrimSpace(c.cfg.URL) == "" || strings.TrimSpace(c.cfg.Queue) == "" {
		return fmt.Errorf("missing broker url or queue")
	}

	c.doneCh = make(chan struct{})
	c.running = true
	go c.run(ctx)
	return nil
}

// Stop closes the channel and connection (best effort, errors logged) and
// waits for the supervisor to exit or ctx to expire. It does not interrupt a
// handler that is already processing a delivery; it only stops new ones from
// arriving.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	doneCh := c.doneCh
	c.running = false
	c.mu.Unlock()

	c.closeConn()

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		doneCh := c.doneCh
		c.doneCh = nil
		c.running = false
		c.mu.Unlock()

		if doneCh != nil {
			close(doneCh)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.lg.Info().Msg("supervisor exiting (ctx cancelled)")
			return
		default:
		}

		if !c.isRunning() {
			c.lg.Info().Msg("supervisor exiting (stopped)")
			return
		}

		if err := c.connectAndDeclare(); err != nil {
			if isPreconditionFailed(err) {
				c.lg.Error().Err(err).Msg("FATAL: queue exists with incompatible arguments; delete it and restart")
				return
			}

			c.lg.Error().Err(err).Dur("retry_in", c.cfg.Retry).Msg("broker connect failed; retrying")
			if !sleepOrDone(ctx, c.cfg.Retry) {
				return
			}
			continue
		}

		c.consumeLoop(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}
		if !c.isRunning() {
			return
		}

		c.lg.Warn().Dur("retry_in", c.cfg.Retry).Msg("deliveries closed; reconnecting")
		c.closeConn()

		if !sleepOrDone(ctx, c.cfg.Retry) {
			return
		}
	}
}

func (c *Consumer) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Consumer) connectAndDeclare() error {
	c.closeConn()

	client, err := Dial(c.cfg.URL)
	if err != nil {
		return err
	}

	ch, err := client.Channel()
	if err != nil {
		_ = client.Close()
		return err
	}

	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = client.Close()
		return fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = client.Close()
		return fmt.Errorf("qos: %w", err)
	}

	dlv, err := ch.Consume(c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = client.Close()
		return fmt.Errorf("consume: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.ch = ch
	c.deliveries = dlv
	c.mu.Unlock()

	c.lg.Info().
		Int("prefetch", c.cfg.Prefetch).
		Str("tag", c.cfg.Tag).
		Msg("consuming")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.lg.Info().Msg("consume loop context cancelled")
			return

		case d, ok := <-c.deliveries:
			if !ok {
				return
			}
			c.processDelivery(ctx, d)
		}
	}
}

// processDelivery settles exactly one delivery: ack on handler success, nack
// without requeue on any handler error. A delivery flushed during channel
// teardown has no acknowledger and is skipped without settling.
func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery) {
	if d.Acknowledger == nil {
		c.lg.Warn().Msg("delivery without acknowledger; ignoring")
		return
	}

	start := time.Now()
	if err := c.handler.Handle(WithMessageID(ctx, d.MessageId), d.Body); err != nil {
		if nerr := d.Nack(false, false); nerr != nil {
			c.lg.Warn().Err(nerr).Msg("nack failed")
		}
		c.lg.Error().Err(err).Dur("took", time.Since(start)).Msg("message rejected (no requeue)")
		return
	}

	if aerr := d.Ack(false); aerr != nil {
		c.lg.Warn().Err(aerr).Msg("ack failed")
	}
	c.lg.Debug().Dur("took", time.Since(start)).Msg("message processed")
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
	c.deliveries = nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func isPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "PRECONDITION_FAILED") || strings.Contains(msg, "INEQUIVALENT ARG")
}
