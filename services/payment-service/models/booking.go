package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusCancelled       BookingStatus = "cancelled"
	BookingStatusPendingApproval BookingStatus = "pending_approval"
)

// CanTransitionTo reports whether an admin may move a booking from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPendingApproval:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	}
	return false
}

type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypeDeposit PaymentType = "deposit"
)

type ParticipantInfo struct {
	Name       string `bson:"name" json:"name" validate:"required"`
	Email      string `bson:"email" json:"email" validate:"required,email"`
	Phone      string `bson:"phone" json:"phone" validate:"required"`
	Experience string `bson:"experience,omitempty" json:"experience,omitempty"`
}

type TrainingBooking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainingID      primitive.ObjectID `bson:"training" json:"trainingId"`
	Participant     ParticipantInfo    `bson:"participantInfo" json:"participantInfo"`
	UserID          string             `bson:"user,omitempty" json:"userId,omitempty"`
	GuestEmail      string             `bson:"guestEmail,omitempty" json:"guestEmail,omitempty"`
	StripeSessionID string             `bson:"stripeSessionId" json:"stripeSessionId"`
	PaymentAmount   float64            `bson:"paymentAmount" json:"paymentAmount"`
	FullAmount      float64            `bson:"fullAmount" json:"fullAmount"`
	DepositAmount   float64            `bson:"depositAmount" json:"depositAmount"`
	Currency        string             `bson:"currency" json:"currency"`
	PaymentType     PaymentType        `bson:"paymentType" json:"paymentType"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	BookingStatus   BookingStatus      `bson:"status" json:"status"`
	InvoiceID       string             `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`
	InvoiceURL      string             `bson:"invoiceUrl,omitempty" json:"invoiceUrl,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ContactEmail is where confirmations for this booking go.
func (b *TrainingBooking) ContactEmail() string {
	if b.Participant.Email != "" {
		return b.Participant.Email
	}
	return b.GuestEmail
}
