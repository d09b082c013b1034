package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"go.uber.org/zap"
)

// ReviewQueue parks paid sessions that need an operator.
type ReviewQueue interface {
	Enqueue(ctx context.Context, review models.ManualReview) error
}

type SQSReviewQueue struct {
	sender   awspkg.QueueSender
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

func NewSQSReviewQueue(sender awspkg.QueueSender, logger *zap.Logger) *SQSReviewQueue {
	return &SQSReviewQueue{sender: sender, attempts: 3, delay: 200 * time.Millisecond, logger: logger}
}

func (q *SQSReviewQueue) Enqueue(ctx context.Context, review models.ManualReview) error {
	body, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal manual review: %w", err)
	}
	attrs := map[string]string{
		"kind":       string(review.Kind),
		"session_id": review.SessionID,
	}

	return retry.Do(
		func() error {
			return q.sender.SendMessage(ctx, string(body), attrs)
		},
		retry.Attempts(q.attempts),
		retry.Delay(q.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			q.logger.Warn("Manual review enqueue failed, retrying",
				zap.String("session_id", review.SessionID),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}
