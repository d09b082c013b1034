package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// Delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Address is the shipping address captured at checkout.
type Address struct {
	Name    string `bson:"name" json:"name" validate:"required"`
	Email   string `bson:"email" json:"email" validate:"required,email"`
	Phone   string `bson:"phone" json:"phone" validate:"required"`
	Street  string `bson:"street" json:"street" validate:"required"`
	City    string `bson:"city" json:"city" validate:"required"`
	Zip     string `bson:"zip" json:"zip" validate:"required"`
	Country string `bson:"country" json:"country" validate:"required"`
}

// SelectedVariant records which option of a variant the customer bought, with
// labels copied from the catalog at purchase time.
type SelectedVariant struct {
	VariantID   string `bson:"variantId" json:"variantId"`
	VariantName string `bson:"variantName" json:"variantName"`
	OptionID    string `bson:"optionId" json:"optionId"`
	OptionValue string `bson:"optionValue" json:"optionValue"`
}

// OrderItem is a denormalized snapshot; it is never re-derived from the live catalog.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Variants  []SelectedVariant  `bson:"selectedVariants,omitempty" json:"selectedVariants,omitempty"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	CustomerEmail   string             `bson:"customerEmail" json:"customerEmail"`
	Total           float64            `bson:"totalAmount" json:"totalAmount"`
	Currency        string             `bson:"currency" json:"currency"`
	Status          OrderStatus        `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	TrackingNumber  string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	StripeSessionID string             `bson:"stripeSessionId" json:"stripeSessionId"`
	InvoiceID       string             `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`
	InvoiceURL      string             `bson:"invoiceUrl,omitempty" json:"invoiceUrl,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MinorToMajor converts an amount in minor currency units (grosze, cents) to
// major units, rounded to two decimals.
func MinorToMajor(amount int64) float64 {
	return math.Round(float64(amount)) / 100
}

// MajorToMinor is the inverse of MinorToMajor.
func MajorToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
