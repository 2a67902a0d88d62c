package queue

import (
	"context"
	"fmt"
	"sync"

	"apod_etl/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer
type Producer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewProducer(url string) (*Producer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Producer{conn, ch}, nil
}

func declare(ch *amqp.Channel, queueName string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}

func (p *Producer) Publish(ctx context.Context, queueName string, body []byte) error {
	if _, err := declare(p.ch, queueName); err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return p.ch.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key (имя очереди)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (p *Producer) Close() {
	p.ch.Close()
	p.conn.Close()
}

// consumerTag позволяет отменить подписку при остановке.
const consumerTag = "apod-etl-worker"

// Consumer
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	workers int
	wg      sync.WaitGroup
}

func NewConsumer(url, queue string, workers int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if workers < 1 {
		workers = 1
	}
	// не больше одного неподтверждённого сообщения на воркер
	if err := ch.Qos(workers, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		workers: workers,
	}, nil
}

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// acknowledger — часть amqp.Delivery, нужная для подтверждения.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle подтверждает успешно обработанное сообщение и отклоняет
// неуспешное без возврата в очередь: повторов нет.
func settle(msg acknowledger, err error) error {
	if err == nil {
		return msg.Ack(false)
	}
	return msg.Nack(false, false)
}

// Consume запускает воркеров и возвращается сразу. ctx передаётся
// обработчику; его отмена прерывает текущие задачи.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	q, err := declare(c.ch, c.queue)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	logger.Log.Infof("Consuming queue: %s (messages: %d)", q.Name, q.Messages)

	msgs, err := c.ch.Consume(
		q.Name,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for msg := range msgs {
				err := handler(ctx, msg.Body)
				if err != nil {
					logger.Log.Errorf("Task failed: %v", err)
				}
				if serr := settle(msg, err); serr != nil {
					logger.Log.WithError(serr).Warn("Failed to settle message")
				}
			}
		}()
	}
	return nil
}

// Stop отменяет подписку и ждёт завершения обработчиков.
func (c *Consumer) Stop() {
	if err := c.ch.Cancel(consumerTag, false); err != nil {
		logger.Log.WithError(err).Warn("Failed to cancel consumer")
	}
	c.wg.Wait()
}

// Done закрывается, когда соединение с брокером потеряно или закрыто.
func (c *Consumer) Done() <-chan struct{} {
	done := make(chan struct{})
	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-closed; err != nil {
			logger.Log.WithError(err).Warn("AMQP connection closed")
		}
		close(done)
	}()
	return done
}

func (c *Consumer) Close() {
	c.ch.Close()
	c.conn.Close()
}
