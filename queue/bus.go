package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
)

// Bus connects to RabbitMQ and provides publish and consume over one
// durable queue. Delivery is at-least-once: the form-understanding worker
// must stay idempotent on form_id.
type Bus struct {
	connection AMQPConnection
	channel    AMQPChannel
	queueName  string
}

// NewBus connects with the real AMQP dialer.
func NewBus(cfg config.QueueConfig) (*Bus, error) {
	return NewBusWithDialer(cfg, &RealAMQPDialer{})
}

// NewBusWithDialer connects using an injected dialer, declares the durable
// queue and returns the bus. Partial failures clean up created resources.
func NewBusWithDialer(cfg config.QueueConfig, dialer AMQPDialer) (*Bus, error) {
	conn, err := dialer.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Bus{
		connection: conn,
		channel:    ch,
		queueName:  cfg.QueueName,
	}, nil
}

// PublishStorageEvent publishes one object-created event to the queue.
func (b *Bus) PublishStorageEvent(event StorageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal storage event: %w", err)
	}

	err = b.channel.Publish(
		"",          // exchange (default)
		b.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish storage event: %w", err)
	}

	common.Logger.WithField("key", event.Key).Debug("published storage event")
	return nil
}

// Consume starts delivering events with manual acknowledgements. The
// prefetch bounds how many unacked deliveries one consumer holds.
func (b *Bus) Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := b.channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set qos: %w", err)
		}
	}
	deliveries, err := b.channel.Consume(
		b.queueName, // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return deliveries, nil
}

// Close closes the channel and connection.
func (b *Bus) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.connection != nil {
		b.connection.Close()
	}
	return nil
}
