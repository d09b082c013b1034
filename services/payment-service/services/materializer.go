package services

import (
	"strings"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/stripe/stripe-go/v80"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildOrder materializes the order for a paid session. The total is the
// captured amount, never the sum of the metadata lines.
func BuildOrder(sess *stripe.CheckoutSession, meta *models.MerchandiseMetadata, lines []models.OrderItem, defaultCurrency string) *models.Order {
	return &models.Order{
		ID:              primitive.NewObjectID(),
		Items:           lines,
		ShippingAddress: meta.ShippingAddress,
		CustomerEmail:   firstNonEmpty(sessionEmail(sess), meta.ShippingAddress.Email),
		Total:           models.MinorToMajor(sess.AmountTotal),
		Currency:        sessionCurrency(sess, defaultCurrency),
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPaid,
		StripeSessionID: sess.ID,
	}
}

// BuildBooking materializes the booking for a paid training session.
func BuildBooking(sess *stripe.CheckoutSession, meta *models.TrainingMetadata, trainingID primitive.ObjectID, requireApproval bool, defaultCurrency string) *models.TrainingBooking {
	status := models.BookingStatusConfirmed
	if requireApproval {
		status = models.BookingStatusPendingApproval
	}

	booking := &models.TrainingBooking{
		ID:              primitive.NewObjectID(),
		TrainingID:      trainingID,
		Participant:     meta.Participant,
		UserID:          meta.UserID,
		GuestEmail:      meta.GuestEmail,
		StripeSessionID: sess.ID,
		PaymentAmount:   models.MinorToMajor(sess.AmountTotal),
		FullAmount:      meta.FullAmount,
		DepositAmount:   meta.DepositAmount,
		Currency:        sessionCurrency(sess, defaultCurrency),
		PaymentType:     meta.PaymentType(),
		PaymentStatus:   models.PaymentStatusPaid,
		BookingStatus:   status,
	}
	if booking.UserID == "" && booking.GuestEmail == "" {
		booking.GuestEmail = sessionEmail(sess)
	}
	return booking
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerEmail != "" {
		return sess.CustomerEmail
	}
	if sess.CustomerDetails != nil {
		return sess.CustomerDetails.Email
	}
	return ""
}

func sessionCurrency(sess *stripe.CheckoutSession, fallback string) string {
	if sess.Currency != "" {
		return strings.ToLower(string(sess.Currency))
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
