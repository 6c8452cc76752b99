package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher owns the queue topology for both asynchronous paths: reading
// processing and OTP SMS delivery. Each logical queue gets a retry queue
// (message TTL dead-letters back to main) and a DLQ for poisoned messages.
type Publisher struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	readingQueue string
	smsQueue     string
}

type ReadingMessage struct {
	ReadingID string `json:"reading_id"`
}

type SMSMessage struct {
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"body"`
}

func NewPublisher(url, readingQueue, smsQueue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	for _, q := range []string{readingQueue, smsQueue} {
		if err := DeclareQueueSet(ch, q); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &Publisher{conn: conn, ch: ch, readingQueue: readingQueue, smsQueue: smsQueue}, nil
}

// DeclareQueueSet declares a main queue plus its retry and dead-letter
// companions. Both the publisher and the worker call this so either side can
// start first.
func DeclareQueueSet(ch *amqp.Channel, queue string) error {
	mainQ := queue
	retryQ := queue + ".retry"
	dlqQ := queue + ".dlq"

	// DLQ
	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return err
	}

	// Retry queue: message TTL -> dead-letter back to main queue
	if _, err := ch.QueueDeclare(
		retryQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": mainQ,
		},
	); err != nil {
		return err
	}

	// Main queue: dead-letter to DLQ on reject/nack(requeue=false)
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		return err
	}

	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishReading enqueues a pending reading for asynchronous processing. It
// returns as soon as the broker confirms the publish.
func (p *Publisher) PublishReading(ctx context.Context, readingID string) error {
	body, err := json.Marshal(ReadingMessage{ReadingID: readingID})
	if err != nil {
		return err
	}
	return p.publish(ctx, p.readingQueue, body)
}

// PublishSMS enqueues an OTP text for delivery by the worker.
func (p *Publisher) PublishSMS(ctx context.Context, phone, body string) error {
	msg, err := json.Marshal(SMSMessage{PhoneNumber: phone, Body: body})
	if err != nil {
		return err
	}
	return p.publish(ctx, p.smsQueue, msg)
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",    // default exchange
		queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
