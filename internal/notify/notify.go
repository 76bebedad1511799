// Package notify delivers authority notifications for escalated reports.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aawaaz/incident-server/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// message is the JSON body consumed by the mail worker.
type message struct {
	Destination string    `json:"destination"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReportID    string    `json:"reportId"`
	QueuedAt    time.Time `json:"queuedAt"`
}

func encode(n models.Notification, now time.Time) ([]byte, error) {
	if n.Destination == "" {
		return nil, errors.New("notification has no destination")
	}
	return json.Marshal(message{
		Destination: n.Destination,
		Subject:     n.Subject,
		Body:        n.Body,
		ReportID:    n.ReportID,
		QueuedAt:    now.UTC(),
	})
}

// confirmChannel publishes to a queue and waits for the broker's confirm.
type confirmChannel interface {
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// amqpChannel is a confirm-mode channel on its own connection.
type amqpChannel struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan *amqp.Error
}

func dialChannel(url, queue string) (*amqpChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &amqpChannel{
		conn:   conn,
		ch:     ch,
		closed: ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (c *amqpChannel) Publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, true, false, msg)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for broker confirm: %w", err)
	}
	if !acked {
		return errors.New("broker rejected notification")
	}
	return nil
}

func (c *amqpChannel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return c.ch.IsClosed() || c.conn.IsClosed()
	}
}

func (c *amqpChannel) Close() error {
	if err := c.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		c.conn.Close()
		return err
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

// AMQPNotifier publishes notifications to a durable RabbitMQ queue. Notify
// returns only after the broker confirms the message. A closed or failed
// channel is dropped and re-dialed on the next Notify.
type AMQPNotifier struct {
	mu      sync.Mutex
	dial    func() (confirmChannel, error)
	ch      confirmChannel
	queue   string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func newAMQPNotifier(queue string, dial func() (confirmChannel, error), logger *zap.SugaredLogger) *AMQPNotifier {
	return &AMQPNotifier{
		dial:    dial,
		queue:   queue,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// DialAMQP connects to url, puts the channel in confirm mode and declares queue.
func DialAMQP(url, queue string, logger *zap.SugaredLogger) (*AMQPNotifier, error) {
	n := newAMQPNotifier(queue, func() (confirmChannel, error) {
		return dialChannel(url, queue)
	}, logger)

	ch, err := n.dial()
	if err != nil {
		return nil, err
	}
	n.ch = ch
	return n, nil
}

// channel returns an open channel, dialing a new one when needed. Callers hold mu.
func (n *AMQPNotifier) channel() (confirmChannel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	if n.ch != nil {
		n.logger.Warnw("Notification channel closed; reconnecting", "queue", n.queue)
		_ = n.ch.Close()
		n.ch = nil
	}
	ch, err := n.dial()
	if err != nil {
		return nil, err
	}
	n.ch = ch
	return ch, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, note models.Notification) error {
	body, err := encode(note, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}

	err = ch.Publish(ctx, n.queue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    note.ReportID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		// The channel state is unknown after a failed publish.
		_ = ch.Close()
		n.ch = nil
		return err
	}

	n.logger.Infow("Authority notification queued",
		"report_id", note.ReportID,
		"queue", n.queue,
	)
	return nil
}

// Close shuts the current channel and its connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		return nil
	}
	err := n.ch.Close()
	n.ch = nil
	return err
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used in development when no broker is configured.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note models.Notification) error {
	if _, err := encode(note, time.Now()); err != nil {
		return err
	}
	n.logger.Infow("Authority notification (not delivered)",
		"report_id", note.ReportID,
		"destination", note.Destination,
		"subject", note.Subject,
	)
	return nil
}
