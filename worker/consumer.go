package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/queue"
)

// EventSource is the slice of the bus the consumer pool needs.
type EventSource interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// EventProcessor handles one decoded storage event.
type EventProcessor interface {
	Process(ctx context.Context, event queue.StorageEvent) error
}

// Consumer runs a pool of bus consumers feeding the processor. Deliveries
// are acked on success; a first failure requeues the message and a second
// failure drops it so a poison document cannot wedge the queue.
type Consumer struct {
	source    EventSource
	processor EventProcessor
	count     int
	logger    *logrus.Entry
}

// NewConsumer creates a consumer pool of the given size.
func NewConsumer(source EventSource, processor EventProcessor, count int) *Consumer {
	if count <= 0 {
		count = 1
	}
	return &Consumer{
		source:    source,
		processor: processor,
		count:     count,
		logger:    common.ServiceLogger("worker"),
	}
}

// Run starts the pool and blocks until the context is cancelled and all
// in-flight deliveries are finished, or every delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < c.count; i++ {
		deliveries, err := c.source.Consume(fmt.Sprintf("formbot-worker-%d", i), 1)
		if err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		wg.Add(1)
		go func(id int, deliveries <-chan amqp.Delivery) {
			defer wg.Done()
			c.consumeLoop(ctx, id, deliveries)
		}(i, deliveries)
	}
	wg.Wait()
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	log := c.logger.WithField("consumer", id)
	log.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}
			c.handle(ctx, log, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, log *logrus.Entry, d amqp.Delivery) {
	event, err := queue.ParseStorageEvent(d.Body)
	if err != nil {
		log.WithError(err).Error("undecodable event, dropping")
		if err := d.Nack(false, false); err != nil {
			log.WithError(err).Error("failed to nack delivery")
		}
		return
	}

	if err := c.processor.Process(ctx, event); err != nil {
		requeue := !d.Redelivered
		log.WithError(err).WithFields(logrus.Fields{
			"key":     event.Key,
			"requeue": requeue,
		}).Error("event processing failed")
		if err := d.Nack(false, requeue); err != nil {
			log.WithError(err).Error("failed to nack delivery")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.WithError(err).Error("failed to ack delivery")
	}
}
