package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// QueueSender sends a single message body to a fixed queue.
type QueueSender interface {
	SendMessage(ctx context.Context, body string, attrs map[string]string) error
}

// SQSSender provides send access to one SQS queue.
type SQSSender struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSSender creates a sender for the given queue URL
func NewSQSSender(cfg sdkaws.Config, queueURL string) *SQSSender {
	return &SQSSender{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

// SendMessage sends body to the queue. attrs are attached as String message attributes.
func (s *SQSSender) SendMessage(ctx context.Context, body string, attrs map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &s.queueURL,
		MessageBody: &body,
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}
	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
