package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/metrics"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/sender"
	"go.uber.org/zap"
)

// SideEffects run after the core record is committed.
type SideEffects interface {
	OrderPaid(ctx context.Context, order *models.Order)
	TrainingBooked(ctx context.Context, booking *models.TrainingBooking, training *models.Training)
}

// Notifier runs the post-payment steps. The invoice is issued before the
// email, which links it when present. A step is skipped when its integration
// is not configured; a failed step is logged and never reaches the caller.
type Notifier struct {
	Invoices InvoiceIssuer
	Mailer   sender.EmailSender
	Events   awspkg.SNSPublisher
	TopicArn string
	Orders   repository.OrderRepository
	Bookings repository.BookingRepository
	Metrics  *metrics.Recorder
	Logger   *zap.Logger
	Timeout  time.Duration
}

func (n *Notifier) OrderPaid(ctx context.Context, order *models.Order) {
	ctx, cancel := n.detach(ctx)
	defer cancel()
	log := n.Logger.With(zap.String("order_id", order.ID.Hex()), zap.String("session_id", order.StripeSessionID))

	var invoiceURL string
	if invoice := n.issueInvoice(ctx, log, orderInvoiceRequest(order)); invoice != nil {
		invoiceURL = invoice.URL
		order.InvoiceID, order.InvoiceURL = invoice.ID, invoice.URL
		if err := n.Orders.SetInvoice(ctx, order.ID, invoice.ID, invoice.URL); err != nil {
			n.fail(log, "invoice_link", err)
		}
	}

	if n.Mailer != nil {
		subject, body, err := renderOrderEmail(order, invoiceURL)
		if err == nil {
			_, err = n.Mailer.SendEmail(ctx, order.CustomerEmail, subject, body)
		}
		if err != nil {
			n.fail(log, "email", err)
		} else {
			log.Info("Order confirmation sent", zap.String("to", order.CustomerEmail))
		}
	}

	n.publish(ctx, log, models.PaymentEvent{
		Type:       models.EventOrderPaid,
		SessionID:  order.StripeSessionID,
		OrderID:    order.ID.Hex(),
		Email:      order.CustomerEmail,
		Amount:     models.MajorToMinor(order.Total),
		Currency:   order.Currency,
		InvoiceURL: invoiceURL,
		Timestamp:  time.Now().UTC(),
	})
}

func (n *Notifier) TrainingBooked(ctx context.Context, booking *models.TrainingBooking, training *models.Training) {
	ctx, cancel := n.detach(ctx)
	defer cancel()
	log := n.Logger.With(zap.String("booking_id", booking.ID.Hex()), zap.String("session_id", booking.StripeSessionID))

	var invoiceURL string
	if invoice := n.issueInvoice(ctx, log, bookingInvoiceRequest(booking, training)); invoice != nil {
		invoiceURL = invoice.URL
		booking.InvoiceID, booking.InvoiceURL = invoice.ID, invoice.URL
		if err := n.Bookings.SetInvoice(ctx, booking.ID, invoice.ID, invoice.URL); err != nil {
			n.fail(log, "invoice_link", err)
		}
	}

	if n.Mailer != nil {
		to := booking.ContactEmail()
		subject, body, err := renderBookingEmail(booking, training, invoiceURL)
		if err == nil {
			_, err = n.Mailer.SendEmail(ctx, to, subject, body)
		}
		if err != nil {
			n.fail(log, "email", err)
		} else {
			log.Info("Booking confirmation sent", zap.String("to", to))
		}
	}

	n.publish(ctx, log, models.PaymentEvent{
		Type:       models.EventTrainingBooked,
		SessionID:  booking.StripeSessionID,
		BookingID:  booking.ID.Hex(),
		TrainingID: booking.TrainingID.Hex(),
		Email:      booking.ContactEmail(),
		Amount:     models.MajorToMinor(booking.PaymentAmount),
		Currency:   booking.Currency,
		InvoiceURL: invoiceURL,
		Timestamp:  time.Now().UTC(),
	})
}

func (n *Notifier) issueInvoice(ctx context.Context, log *zap.Logger, req InvoiceRequest) *Invoice {
	if n.Invoices == nil {
		return nil
	}
	invoice, err := n.Invoices.Issue(ctx, req)
	if err != nil {
		n.fail(log, "invoice", err)
		return nil
	}
	log.Info("Invoice issued", zap.String("invoice_number", invoice.Number))
	return invoice
}

func (n *Notifier) publish(ctx context.Context, log *zap.Logger, event models.PaymentEvent) {
	if n.Events == nil || n.TopicArn == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err == nil {
		err = n.Events.Publish(ctx, n.TopicArn, event.Type, payload)
	}
	if err != nil {
		n.fail(log, "event", err)
		return
	}
	log.Info("Payment event published to SNS", zap.String("event_type", event.Type))
}

func (n *Notifier) fail(log *zap.Logger, step string, err error) {
	n.Metrics.NotifierFailure(step)
	log.Warn("Non-critical post-payment step failed", zap.String("step", step), zap.Error(err))
}

// detach keeps the side effects running after the webhook request finishes.
func (n *Notifier) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
