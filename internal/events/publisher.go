package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// SQSPublisher delivers outbox entries onto an SQS queue for the analytics
// consumers. The event type travels as a message attribute so consumers can
// filter without parsing the body.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher creates a publisher for the given queue.
func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

var _ DeliveryHandler = (*SQSPublisher)(nil)

// Handle sends one outbox entry to the queue.
func (p *SQSPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(entry.Payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(entry.Type),
			},
			"event_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(entry.ID.String()),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("events: send SQS message: %w", err)
	}
	return nil
}

// LogPublisher is the fallback delivery handler when no queue is configured:
// events are logged and considered delivered.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher creates a log-only delivery handler.
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

var _ DeliveryHandler = (*LogPublisher)(nil)

// Handle logs the entry.
func (p *LogPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	p.logger.Info("event published",
		"event_id", entry.ID,
		"type", entry.Type,
		"payload", string(entry.Payload),
	)
	return nil
}
