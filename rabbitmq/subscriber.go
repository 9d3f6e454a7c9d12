package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"inspection-pipeline/apperrors"
	"inspection-pipeline/models"
	"inspection-pipeline/service"
)

// Subscriber consumes cleaned-frame ingestion requests from a queue and
// feeds them to the analysis service. It is an optional alternative driver
// to the HTTP ingestion endpoint.
type Subscriber struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	svc     *service.Service
}

// NewSubscriber connects to the broker and declares the queue.
func NewSubscriber(url, queue string, svc *service.Service) (*Subscriber, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	return &Subscriber{conn: conn, channel: channel, queue: queue, svc: svc}, nil
}

// Start consumes messages until ctx is cancelled or the channel closes.
func (s *Subscriber) Start(ctx context.Context) error {
	deliveries, err := s.channel.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.WithField("queue", s.queue).Info("rabbitmq subscriber started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			s.handle(ctx, delivery)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, delivery amqp.Delivery) {
	var req models.AnalyzeImageRequest
	if err := json.Unmarshal(delivery.Body, &req); err != nil {
		log.Warnf("dropping undecodable message: %v", err)
		delivery.Nack(false, false)
		return
	}

	_, err := s.svc.AnalyzeImage(ctx, &req)
	switch {
	case err == nil:
		delivery.Ack(false)
	case apperrors.IsInput(err) || apperrors.IsNotFound(err):
		// Redelivery cannot fix a bad request.
		log.Warnf("dropping unprocessable message: %v", err)
		delivery.Nack(false, false)
	default:
		log.Warnf("requeueing message after transient failure: %v", err)
		delivery.Nack(false, true)
	}
}

// Close shuts down the channel and connection.
func (s *Subscriber) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
