package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends ApplicationEvents to RabbitMQ.  Each call dials, declares
// the queue and publishes one persistent message; transitions are rare
// enough that a pooled connection is not needed.
type Publisher struct {
	url string
	log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log}
}

// defaultDialTimeout bounds the TCP dial and AMQP handshake when ctx has no
// deadline of its own.
const defaultDialTimeout = 5 * time.Second

var errDeadline = errors.New("rabbitmq: context deadline before dial")

// dialTimeout is the time left until ctx expires, or defaultDialTimeout.
func dialTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dl, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout, nil
	}
	left := time.Until(dl)
	if left <= 0 {
		return 0, errDeadline
	}
	return left, nil
}

// Publish delivers ev to the volunteer.application queue.  Errors are logged
// and returned so the caller can choose to ignore them.  The whole call,
// handshake included, ends when ctx does.
func (p *Publisher) Publish(ctx context.Context, ev ApplicationEvent) error {
	timeout, err := dialTimeout(ctx)
	if err != nil {
		p.log.Warn("rabbitmq: publish skipped", zap.Error(err))
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()
	// Closing the connection unblocks a channel open or declare that the
	// broker never answers.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		ApplicationQueueName, // name
		true,                 // durable
		false,                // autoDelete
		false,                // exclusive
		false,                // noWait
		nil,                  // args
	); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ApplicationQueueName, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}
