package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

type SellerInfo struct {
	Name    string
	Address string
	TaxID   string
}

type Party struct {
	Name    string
	Email   string
	Address string
}

type InvoiceLine struct {
	Description string
	Quantity    int
	UnitPrice   float64
}

func (l InvoiceLine) Total() float64 { return l.UnitPrice * float64(l.Quantity) }

type InvoiceRequest struct {
	Reference string
	Buyer     Party
	Lines     []InvoiceLine
	Total     float64
	Currency  string
}

type Invoice struct {
	ID     string
	Number string
	URL    string
}

// InvoiceIssuer produces an invoice document and a link the customer can open.
type InvoiceIssuer interface {
	Issue(ctx context.Context, req InvoiceRequest) (*Invoice, error)
}

// S3InvoiceIssuer renders invoices to HTML, archives them in S3 and hands out
// presigned download links.
type S3InvoiceIssuer struct {
	store   awspkg.ObjectStore
	bucket  string
	urlTTL  time.Duration
	seller  SellerInfo
	breaker *gobreaker.CircuitBreaker[*Invoice]
	now     func() time.Time
}

func NewS3InvoiceIssuer(store awspkg.ObjectStore, bucket string, urlTTL time.Duration, seller SellerInfo) *S3InvoiceIssuer {
	return &S3InvoiceIssuer{
		store:  store,
		bucket: bucket,
		urlTTL: urlTTL,
		seller: seller,
		breaker: gobreaker.NewCircuitBreaker[*Invoice](gobreaker.Settings{
			Name:        "invoice-s3",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		now: time.Now,
	}
}

func (s *S3InvoiceIssuer) Issue(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	issuedAt := s.now().UTC()
	id := uuid.New()
	number := fmt.Sprintf("FV/%s/%s", issuedAt.Format("2006/01"), strings.ToUpper(id.String()[:8]))

	doc, err := render("invoice.html", struct {
		InvoiceRequest
		Number   string
		IssuedAt time.Time
		Seller   SellerInfo
	}{req, number, issuedAt, s.seller})
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}

	key := fmt.Sprintf("invoices/%s/%s.html", issuedAt.Format("2006/01"), id)
	return s.breaker.Execute(func() (*Invoice, error) {
		if err := s.store.PutObject(ctx, s.bucket, key, "text/html; charset=utf-8", []byte(doc)); err != nil {
			return nil, fmt.Errorf("upload invoice: %w", err)
		}
		url, err := s.store.PresignGet(ctx, s.bucket, key, s.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("presign invoice: %w", err)
		}
		return &Invoice{ID: id.String(), Number: number, URL: url}, nil
	})
}

func orderInvoiceRequest(order *models.Order) InvoiceRequest {
	lines := make([]InvoiceLine, 0, len(order.Items))
	for _, item := range order.Items {
		desc := item.Name
		for _, v := range item.Variants {
			desc += fmt.Sprintf(", %s: %s", v.VariantName, v.OptionValue)
		}
		lines = append(lines, InvoiceLine{Description: desc, Quantity: item.Quantity, UnitPrice: item.Price})
	}
	addr := order.ShippingAddress
	return InvoiceRequest{
		Reference: order.StripeSessionID,
		Buyer: Party{
			Name:    addr.Name,
			Email:   order.CustomerEmail,
			Address: fmt.Sprintf("%s, %s %s, %s", addr.Street, addr.Zip, addr.City, addr.Country),
		},
		Lines:    lines,
		Total:    order.Total,
		Currency: order.Currency,
	}
}

func bookingInvoiceRequest(booking *models.TrainingBooking, training *models.Training) InvoiceRequest {
	desc := "Szkolenie: " + training.Title
	if booking.PaymentType == models.PaymentTypeDeposit {
		desc += " (zaliczka)"
	}
	return InvoiceRequest{
		Reference: booking.StripeSessionID,
		Buyer:     Party{Name: booking.Participant.Name, Email: booking.ContactEmail()},
		Lines:     []InvoiceLine{{Description: desc, Quantity: 1, UnitPrice: booking.PaymentAmount}},
		Total:     booking.PaymentAmount,
		Currency:  booking.Currency,
	}
}
