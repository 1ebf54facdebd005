package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/metrics"
)

// RabbitCreditQueue реализует очередь начислений через AMQP.
type RabbitCreditQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

var _ domain.CreditQueue = (*RabbitCreditQueue)(nil)

// NewRabbitCreditQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitCreditQueue(amqpURL, queue string) (*RabbitCreditQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitCreditQueue{conn: conn, channel: ch, queue: queue}, nil
}

// Enqueue публикует начисление в очередь.
func (q *RabbitCreditQueue) Enqueue(ctx context.Context, credit domain.FeedCredit) error {
	payload, err := json.Marshal(credit)
	if err != nil {
		return fmt.Errorf("marshal credit: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    credit.ID,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish credit: %w", err)
	}
	return nil
}

// Pop блокирующе читает начисление из очереди.
// Подписка на очередь создаётся один раз при первом вызове.
func (q *RabbitCreditQueue) Pop(ctx context.Context) (domain.FeedCredit, error) {
	if q.deliveries == nil {
		deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.FeedCredit{}, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = deliveries
	}
	select {
	case <-ctx.Done():
		return domain.FeedCredit{}, ctx.Err()
	case delivery, ok := <-q.deliveries:
		if !ok {
			return domain.FeedCredit{}, errors.New("amqp queue: канал доставки закрыт")
		}
		var credit domain.FeedCredit
		if err := json.Unmarshal(delivery.Body, &credit); err != nil {
			_ = delivery.Nack(false, false)
			return domain.FeedCredit{}, fmt.Errorf("decode credit: %w", err)
		}
		if err := delivery.Ack(false); err != nil {
			return domain.FeedCredit{}, fmt.Errorf("ack credit: %w", err)
		}
		return credit, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitCreditQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
