package notifications

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RecordAnalyzedQueue receives one message per processed upload.
const RecordAnalyzedQueue = "record.analyzed"

// RecordAnalyzedEvent mirrors the notification written for an upload.
type RecordAnalyzedEvent struct {
	NotificationID string    `json:"notificationId"`
	Owner          string    `json:"owner"`
	FileName       string    `json:"fileName"`
	IssuedBy       string    `json:"issuedBy,omitempty"`
	Title          string    `json:"title"`
	At             time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev RecordAnalyzedEvent) error
}

// AMQPPublisher dials the broker per message and publishes to a durable
// queue on the default exchange. Errors are logged and returned.
type AMQPPublisher struct {
	URL   string
	Queue string
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: RecordAnalyzedQueue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev RecordAnalyzedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("[NOTIFY][AMQP] dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("[NOTIFY][AMQP] channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Printf("[NOTIFY][AMQP] queue declare failed: %v", err)
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
		MessageId:    ev.NotificationID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Printf("[NOTIFY][AMQP] publish failed: %v", err)
		return err
	}
	return nil
}
