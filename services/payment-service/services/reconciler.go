package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/filipfilip1/instytut-saunowy/services/common/logger"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/metrics"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/stripe/stripe-go/v80"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	eventSessionCompleted stripe.EventType = "checkout.session.completed"
	eventPaymentSucceeded stripe.EventType = "payment_intent.succeeded"
	eventPaymentFailed    stripe.EventType = "payment_intent.payment_failed"
)

type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeInformational    Outcome = "informational"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeHeldForReview    Outcome = "held_for_review"
)

var (
	ErrTrainingNotFound = errors.New("training not found")
	ErrMalformedEvent   = errors.New("malformed event payload")

	// Aborts the unit of work when the guard finds an existing record.
	errAlreadyProcessed = errors.New("session already processed")
)

type Result struct {
	Outcome   Outcome             `json:"outcome"`
	Kind      models.PurchaseKind `json:"kind,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
	RecordID  string              `json:"recordId,omitempty"`
}

// EventHandler reconciles one verified event.
type EventHandler interface {
	Handle(ctx context.Context, event stripe.Event) (Result, error)
}

type ReconcilerOptions struct {
	RequireBookingApproval bool
	DefaultCurrency        string
}

type ReconcilerDeps struct {
	Store     repository.Store
	Products  repository.ProductRepository
	Orders    repository.OrderRepository
	Trainings repository.TrainingRepository
	Bookings  repository.BookingRepository
	Notifier  SideEffects
	Review    ReviewQueue    // optional
	Locker    DeliveryLocker // optional
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// Reconciler turns completed checkout sessions into orders and bookings,
// exactly once per session id.
type Reconciler struct {
	ReconcilerDeps
	ledger *StockLedger
	opts   ReconcilerOptions
}

func NewReconciler(deps ReconcilerDeps, opts ReconcilerOptions) *Reconciler {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "pln"
	}
	return &Reconciler{
		ReconcilerDeps: deps,
		ledger:         NewStockLedger(deps.Products, deps.Logger),
		opts:           opts,
	}
}

func (r *Reconciler) Handle(ctx context.Context, event stripe.Event) (Result, error) {
	log := logger.With(ctx, r.Logger).With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
	)

	switch event.Type {
	case eventSessionCompleted:
		var sess stripe.CheckoutSession
		if event.Data == nil {
			return Result{}, ErrMalformedEvent
		}
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return r.reconcileSession(ctx, &sess, log.With(zap.String("session_id", sess.ID)))

	case eventPaymentSucceeded, eventPaymentFailed:
		var pi stripe.PaymentIntent
		if event.Data != nil {
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Debug("Payment intent payload not decoded", zap.Error(err))
			}
		}
		log.Info("Payment intent update received",
			zap.String("payment_intent_id", pi.ID),
			zap.String("status", string(pi.Status)),
		)
		return Result{Outcome: OutcomeInformational}, nil

	default:
		log.Info("Unhandled webhook event type")
		return Result{Outcome: OutcomeIgnored}, nil
	}
}

func (r *Reconciler) reconcileSession(ctx context.Context, sess *stripe.CheckoutSession, log *zap.Logger) (Result, error) {
	kind := models.KindOf(sess.Metadata)
	log = log.With(zap.String("kind", string(kind)))

	if r.Locker != nil {
		release, err := r.Locker.Acquire(ctx, sess.ID)
		switch {
		case errors.Is(err, ErrDeliveryInProgress):
			log.Info("Concurrent delivery holds the session lock")
			return Result{}, err
		case err != nil:
			log.Warn("Delivery lock unavailable, continuing without it", zap.Error(err))
		default:
			defer release()
		}
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	if kind == models.PurchaseTraining {
		res, err = r.reconcileBooking(ctx, sess, log)
	} else {
		res, err = r.reconcileOrder(ctx, sess, log)
	}
	r.Metrics.Duration(string(kind), time.Since(start))

	if err != nil && r.Review != nil && isUnrecoverable(err) {
		res, err = r.holdForReview(ctx, sess, kind, err, log)
	}
	if err != nil {
		r.Metrics.Failure(string(kind))
		return Result{}, err
	}

	res.Kind, res.SessionID = kind, sess.ID
	r.Metrics.Outcome(string(kind), string(res.Outcome))
	return res, nil
}

func (r *Reconciler) reconcileOrder(ctx context.Context, sess *stripe.CheckoutSession, log *zap.Logger) (Result, error) {
	meta, err := models.ParseMerchandiseMetadata(sess.Metadata)
	if err != nil {
		log.Error("Cannot parse merchandise metadata", zap.Error(err))
		return Result{}, err
	}

	var order *models.Order
	err = r.Store.WithUnitOfWork(ctx, func(ctx context.Context) error {
		exists, err := r.Orders.ExistsForSession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("check existing order: %w", err)
		}
		if exists {
			return errAlreadyProcessed
		}

		lines, err := r.ledger.Apply(ctx, meta.Items)
		if err != nil {
			return err
		}
		order = BuildOrder(sess, meta, lines, r.opts.DefaultCurrency)
		return r.Orders.Create(ctx, order)
	})
	if res, done := r.settle(err, log); done {
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	log.Info("Order created from checkout session",
		zap.String("order_id", order.ID.Hex()),
		zap.Float64("total", order.Total),
		zap.Int("items", len(order.Items)),
	)
	r.Notifier.OrderPaid(ctx, order)
	return Result{Outcome: OutcomeProcessed, RecordID: order.ID.Hex()}, nil
}

func (r *Reconciler) reconcileBooking(ctx context.Context, sess *stripe.CheckoutSession, log *zap.Logger) (Result, error) {
	meta, err := models.ParseTrainingMetadata(sess.Metadata)
	if err != nil {
		log.Error("Cannot parse training metadata", zap.Error(err))
		return Result{}, err
	}
	trainingID, err := primitive.ObjectIDFromHex(meta.TrainingID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrTrainingNotFound, meta.TrainingID)
	}

	var (
		booking  *models.TrainingBooking
		training *models.Training
	)
	err = r.Store.WithUnitOfWork(ctx, func(ctx context.Context) error {
		exists, err := r.Bookings.ExistsForSession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if exists {
			return errAlreadyProcessed
		}

		training, err = r.Trainings.IncrementParticipants(ctx, trainingID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTrainingNotFound, meta.TrainingID)
		}
		if err != nil {
			return err
		}

		booking = BuildBooking(sess, meta, trainingID, r.opts.RequireBookingApproval, r.opts.DefaultCurrency)
		return r.Bookings.Create(ctx, booking)
	})
	if res, done := r.settle(err, log); done {
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	log.Info("Training booking created from checkout session",
		zap.String("booking_id", booking.ID.Hex()),
		zap.String("training_id", meta.TrainingID),
		zap.String("payment_type", string(booking.PaymentType)),
		zap.Int("participants", training.CurrentParticipants),
	)
	r.Notifier.TrainingBooked(ctx, booking, training)
	return Result{Outcome: OutcomeProcessed, RecordID: booking.ID.Hex()}, nil
}

// settle maps the unit-of-work error to a duplicate-delivery result when it is
// one, and logs failures that may have left partial writes behind.
func (r *Reconciler) settle(err error, log *zap.Logger) (Result, bool) {
	switch {
	case err == nil:
		return Result{}, false
	case errors.Is(err, errAlreadyProcessed):
		log.Info("Duplicate delivery, session already reconciled")
		return Result{Outcome: OutcomeAlreadyProcessed}, true
	case errors.Is(err, repository.ErrDuplicateSession):
		if r.Store.Atomic() {
			log.Info("Duplicate delivery caught by unique index, transaction rolled back")
		} else {
			log.Error("Duplicate delivery raced past the existence check without a transaction; stock or participant counts may have been applied twice")
		}
		return Result{Outcome: OutcomeAlreadyProcessed}, true
	}

	if !r.Store.Atomic() {
		log.Error("Reconciliation failed without a transaction; earlier writes for this session were not rolled back", zap.Error(err))
	} else {
		log.Error("Reconciliation failed, transaction aborted", zap.Error(err))
	}
	return Result{}, false
}

func (r *Reconciler) holdForReview(ctx context.Context, sess *stripe.CheckoutSession, kind models.PurchaseKind, cause error, log *zap.Logger) (Result, error) {
	review := models.ManualReview{
		SessionID:     sess.ID,
		Kind:          kind,
		Reason:        cause.Error(),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sessionEmail(sess),
		Metadata:      sess.Metadata,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.Review.Enqueue(ctx, review); err != nil {
		log.Error("Manual review enqueue failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w (manual review enqueue failed: %v)", cause, err)
	}
	log.Warn("Paid session held for manual review", zap.String("reason", review.Reason))
	return Result{Outcome: OutcomeHeldForReview}, nil
}

// isUnrecoverable reports failures a provider retry cannot fix.
func isUnrecoverable(err error) bool {
	var stockErr *InsufficientStockError
	return errors.As(err, &stockErr) ||
		errors.Is(err, models.ErrInvalidMetadata) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrTrainingNotFound) ||
		errors.Is(err, repository.ErrTrainingFull)
}
