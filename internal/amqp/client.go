package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures      = 5
	openTimeout      = 30 * time.Second
	maxBackoff       = 30 * time.Second
	maxDialAttempts  = 3
	publishTimeout   = 5 * time.Second
	consumerPrefetch = 10
	consumerTag      = ""
)

var (
	// ErrMalformed marks a delivery that can never be processed.
	ErrMalformed   = errors.New("malformed message")
	errCircuitOpen = errors.New("circuit breaker is open")
)

// Handler processes one delivery. Returning an error wrapping ErrMalformed
// drops the message; any other error requeues it once.
type Handler func(ctx context.Context, eventType string, body []byte) error

type Client struct {
	url               string
	exchangeName      string
	transactionsQueue string
	alertsQueue       string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and both queues.
func NewClient(url, exchangeName, transactionsQueue, alertsQueue string) (*Client, error) {
	c := &Client{
		url:               url,
		exchangeName:      exchangeName,
		transactionsQueue: transactionsQueue,
		alertsQueue:       alertsQueue,
	}
	if err := c.connect(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) TransactionsQueue() string { return c.transactionsQueue }
func (c *Client) AlertsQueue() string { return c.alertsQueue }

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// connect dials with backoff unless a usable channel already exists.
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()

	var lastErr error
	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		conn, err := amqp091.Dial(c.url)
		if err != nil {
			lastErr = fmt.Errorf("dial AMQP: %w", err)
			continue
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			lastErr = fmt.Errorf("open channel: %w", err)
			continue
		}
		c.conn, c.channel = conn, ch
		if err := c.setupLocked(); err != nil {
			c.closeLocked()
			return fmt.Errorf("setup exchange and queues: %w", err)
		}
		return nil
	}
	return lastErr
}

func (c *Client) setupLocked() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range []string{c.transactionsQueue, c.alertsQueue} {
		if _, err := c.channel.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		// Direct exchange: the routing key is the queue name.
		if err := c.channel.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) queueFor(eventType string) string {
	if eventType == EventBudgetAlert {
		return c.alertsQueue
	}
	return c.transactionsQueue
}

// Publish sends msg as a persistent JSON message routed by its event type.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", msg.EventType(), errCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.connect(ctx); err != nil {
		c.recordFailure()
		return err
	}

	queue := c.queueFor(msg.EventType())
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	err = ch.PublishWithContext(pubCtx, c.exchangeName, queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.MessageID(),
		Type:         msg.EventType(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published message",
		"type", msg.EventType(),
		"message_id", msg.MessageID(),
		"exchange", c.exchangeName,
		"queue", queue)
	return nil
}

// Consume delivers messages from queue to handler until ctx is done.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed for queue %s", queue)
			}
			c.dispatch(ctx, queue, delivery, handler)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, queue string, d amqp091.Delivery, handler Handler) {
	err := handler(ctx, d.Type, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformed) || d.Redelivered:
		slog.ErrorContext(ctx, "Dropping message", "queue", queue, "type", d.Type, "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
	default:
		slog.WarnContext(ctx, "Requeueing message", "queue", queue, "type", d.Type, "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, true)
	}
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
