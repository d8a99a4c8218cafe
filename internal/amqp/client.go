package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishExpenseEvent publishes one expense CRUD event.
func (c *Client) PublishExpenseEvent(ctx context.Context, msg *ExpenseEventMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published expense event",
		"expense_id", msg.ExpenseID,
		"user_id", msg.UserID,
		"action", msg.Action,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// ConsumeExpenseEvents delivers messages to handler until ctx is done.
// Malformed messages are rejected without requeue; handler errors requeue.
func (c *Client) ConsumeExpenseEvents(ctx context.Context, handler func(*ExpenseEventMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming expense events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ExpenseEventMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"expense_id", msg.ExpenseID,
					"action", msg.Action)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// exponentialBackoff returns the reconnect delay for the given attempt,
// doubling from one second and capping at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError classifies errors that warrant reconnecting rather
// than failing the worker outright.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection closed",
		"channel closed",
		"unexpected eof",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// ConsumeWithReconnect wraps ConsumeExpenseEvents with a redial loop so a
// broker restart doesn't kill the worker.
func (c *Client) ConsumeWithReconnect(ctx context.Context, url string, handler func(*ExpenseEventMessage) error) error {
	attempt := 0
	for {
		err := c.ConsumeExpenseEvents(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		delay := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"error", err, "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		fresh, dialErr := NewClient(url, c.exchangeName, c.queueName)
		if dialErr != nil {
			slog.ErrorContext(ctx, "AMQP redial failed", "error", dialErr, "attempt", attempt)
			continue
		}
		c.Close()
		c.conn = fresh.conn
		c.channel = fresh.channel
		attempt = 0
	}
}
