package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"elda-admin/internal/querycache"

	"github.com/avast/retry-go"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "elda.entities"
	// RoutingKey matches every entity and action, e.g. "employee.deleted".
	RoutingKey = "#"

	prefetchCount = 20
	dialAttempts  = 10
	dialDelay     = time.Second
	dialMaxDelay  = 30 * time.Second
)

// Consumer binds a private queue to the entity exchange. Each console
// replica gets its own copy of every event since each holds its own cache.
type Consumer struct {
	url   string
	cache *querycache.Cache
	wg    sync.WaitGroup
}

func NewConsumer(url string, cache *querycache.Cache) *Consumer {
	return &Consumer{url: url, cache: cache}
}

// Start consumes in the background until ctx is done, reconnecting with
// backoff when the broker goes away.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for ctx.Err() == nil {
			if err := c.run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("events: consumer stopped err=%v", err)
			}
		}
		log.Println("events: consumer stopping")
	}()
}

// Wait blocks until the consumer goroutine has exited.
func (c *Consumer) Wait() { c.wg.Wait() }

func (c *Consumer) dial(ctx context.Context) (*amqp.Connection, error) {
	var conn *amqp.Connection
	err := retry.Do(
		func() error {
			var err error
			conn, err = amqp.Dial(c.url)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(dialAttempts),
		retry.Delay(dialDelay),
		retry.MaxDelay(dialMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("events: dial retry attempt=%d err=%v", n+1, err)
		}),
	)
	return conn, err
}

func (c *Consumer) run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	log.Printf("events: listening exchange=%s queue=%s", ExchangeName, q.Name)

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(msg)
		}
	}
}

// handle applies one delivery. Malformed or unknown events are dropped;
// retrying them cannot succeed.
func (c *Consumer) handle(msg amqp.Delivery) {
	ev, err := Decode(msg.Body)
	if err == nil {
		var n int
		n, err = Apply(c.cache, ev)
		if err == nil {
			log.Printf("events: applied entity=%s id=%s action=%s entries=%d", ev.Entity, ev.ID, ev.Action, n)
		}
	}
	if err != nil {
		log.Printf("events: dropped routing_key=%s err=%v", msg.RoutingKey, err)
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}
