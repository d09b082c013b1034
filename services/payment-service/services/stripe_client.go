package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

var (
	ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")
	ErrMissingSignature     = errors.New("missing Stripe-Signature header")
	ErrInvalidSignature     = errors.New("invalid Stripe webhook signature")
)

// EventVerifier turns a raw webhook body into a trusted event.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
}

// SessionCreator opens hosted checkout sessions.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*stripe.CheckoutSession, error)
}

type CheckoutLine struct {
	Name      string
	UnitPrice float64
	Quantity  int
}

type CheckoutSessionRequest struct {
	Lines         []CheckoutLine
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type StripeService struct {
	WebhookKey string
	sessions   *session.Client
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	return &StripeService{
		WebhookKey: webhookKey,
		sessions:   &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

// VerifyEvent checks the signature over the exact payload bytes. It never
// touches storage, so a rejected event has no side effects.
func (s *StripeService) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.WebhookKey == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	if signature == "" {
		return stripe.Event{}, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookKey,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(models.MajorToMinor(line.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}
