package rabbitmq

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is a thin, fail-fast wrapper around one broker connection. It never
// retries: reconnect policy lives in the Consumer supervisor, so a dial or
// channel failure surfaces immediately to the caller.
type Client struct {
	conn *amqp.Connection
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Channel opens a new channel on the underlying connection.
func (c *Client) Channel() (*amqp.Channel, error) {
	if c.conn == nil {
		return nil, errors.New("rabbitmq client closed")
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	return conn.Close()
}
