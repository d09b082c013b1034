package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/sender"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockInvoiceIssuer struct {
	requests []services.InvoiceRequest
	err      error
}

func (m *mockInvoiceIssuer) Issue(_ context.Context, req services.InvoiceRequest) (*services.Invoice, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &services.Invoice{ID: "inv-1", Number: "FV/2026/03/ABCDEF12", URL: "https://s3.local/inv-1.html"}, nil
}

type sentEmail struct {
	to, subject, body string
	ctxErr            error
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{to, subject, htmlBody, ctx.Err()})
	if m.err != nil {
		return sender.SendResult{}, m.err
	}
	return sender.SendResult{MessageID: "<1@smtp.local>", SentAt: time.Now()}, nil
}

type publishedEvent struct {
	topicArn, eventType string
	message             []byte
}

type mockSNSPublisher struct {
	published []publishedEvent
	err       error
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedEvent{topicArn, eventType, message})
	return nil
}

// --- Helpers ---

const testTopic = "arn:aws:sns:eu-central-1:000000000000:payment-events"

func paidOrder(db *memDB) *models.Order {
	order := &models.Order{
		ID: primitive.NewObjectID(),
		Items: []models.OrderItem{{
			ProductID: primitive.NewObjectID(),
			Name:      "Czapka saunowa",
			Price:     20,
			Quantity:  2,
			Variants:  []models.SelectedVariant{{VariantName: "Rozmiar", OptionValue: "M"}},
		}},
		ShippingAddress: models.Address{Name: "Jan Kowalski", Street: "Ul. Przykładowa 1", City: "Kraków", Zip: "30-001", Country: "PL"},
		CustomerEmail:   "jan@example.com",
		Total:           40,
		Currency:        "pln",
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPaid,
		StripeSessionID: "cs_test_1",
	}
	_ = fakeOrders{db}.Create(context.Background(), order)
	return order
}

func newTestNotifier(db *memDB) *services.Notifier {
	return &services.Notifier{
		Orders:   fakeOrders{db},
		Bookings: fakeBookings{db},
		Logger:   zap.NewNop(),
		Timeout:  time.Second,
	}
}

// --- Tests ---

func TestNotifier_OrderPaid_AllSteps(t *testing.T) {
	db := newMemDB()
	order := paidOrder(db)
	invoices, mailer, events := &mockInvoiceIssuer{}, &mockMailer{}, &mockSNSPublisher{}

	n := newTestNotifier(db)
	n.Invoices, n.Mailer, n.Events, n.TopicArn = invoices, mailer, events, testTopic

	n.OrderPaid(context.Background(), order)

	require.Len(t, invoices.requests, 1)
	req := invoices.requests[0]
	assert.Equal(t, "cs_test_1", req.Reference)
	assert.Equal(t, 40.0, req.Total)
	require.Len(t, req.Lines, 1)
	assert.Equal(t, "Czapka saunowa, Rozmiar: M", req.Lines[0].Description)

	stored, err := fakeOrders{db}.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "inv-1", stored.InvoiceID)
	assert.Equal(t, "https://s3.local/inv-1.html", stored.InvoiceURL)

	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	assert.Equal(t, "jan@example.com", mail.to)
	assert.Contains(t, mail.subject, order.ID.Hex())
	assert.Contains(t, mail.body, "Jan Kowalski")
	assert.Contains(t, mail.body, "40.00 PLN")
	assert.Contains(t, mail.body, "https://s3.local/inv-1.html")

	require.Len(t, events.published, 1)
	assert.Equal(t, testTopic, events.published[0].topicArn)
	assert.Equal(t, models.EventOrderPaid, events.published[0].eventType)
	var evt models.PaymentEvent
	require.NoError(t, json.Unmarshal(events.published[0].message, &evt))
	assert.Equal(t, int64(4000), evt.Amount)
	assert.Equal(t, order.ID.Hex(), evt.OrderID)
	assert.Equal(t, "https://s3.local/inv-1.html", evt.InvoiceURL)
}

func TestNotifier_NothingConfigured(t *testing.T) {
	db := newMemDB()
	order := paidOrder(db)

	assert.NotPanics(t, func() { newTestNotifier(db).OrderPaid(context.Background(), order) })
	assert.Empty(t, order.InvoiceURL)
}

func TestNotifier_FailedStepsDoNotStopLaterOnes(t *testing.T) {
	db := newMemDB()
	order := paidOrder(db)
	mailer := &mockMailer{err: errors.New("smtp down")}
	events := &mockSNSPublisher{}

	n := newTestNotifier(db)
	n.Invoices = &mockInvoiceIssuer{err: errors.New("s3 down")}
	n.Mailer, n.Events, n.TopicArn = mailer, events, testTopic

	n.OrderPaid(context.Background(), order)

	require.Len(t, mailer.sent, 1, "email attempted after invoice failure")
	assert.NotContains(t, mailer.sent[0].body, "Pobierz fakturę")
	require.Len(t, events.published, 1, "event published after email failure")
	assert.Empty(t, order.InvoiceID)
}

func TestNotifier_OutlivesCancelledRequest(t *testing.T) {
	db := newMemDB()
	order := paidOrder(db)
	mailer := &mockMailer{}

	n := newTestNotifier(db)
	n.Mailer = mailer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.OrderPaid(ctx, order)

	require.Len(t, mailer.sent, 1)
	assert.NoError(t, mailer.sent[0].ctxErr)
}

func TestNotifier_TrainingBooked(t *testing.T) {
	db := newMemDB()
	trainingID := db.addTraining(1200, 300, 1, 10)
	training, err := fakeTrainings{db}.FindByID(context.Background(), trainingID)
	require.NoError(t, err)

	booking := &models.TrainingBooking{
		TrainingID:      trainingID,
		Participant:     models.ParticipantInfo{Name: "Anna Nowak", Email: "anna@example.com"},
		StripeSessionID: "cs_test_2",
		PaymentAmount:   300,
		FullAmount:      1200,
		DepositAmount:   300,
		Currency:        "pln",
		PaymentType:     models.PaymentTypeDeposit,
		PaymentStatus:   models.PaymentStatusPaid,
		BookingStatus:   models.BookingStatusPendingApproval,
	}
	require.NoError(t, fakeBookings{db}.Create(context.Background(), booking))

	invoices, mailer, events := &mockInvoiceIssuer{}, &mockMailer{}, &mockSNSPublisher{}
	n := newTestNotifier(db)
	n.Invoices, n.Mailer, n.Events, n.TopicArn = invoices, mailer, events, testTopic

	n.TrainingBooked(context.Background(), booking, training)

	require.Len(t, invoices.requests, 1)
	assert.Equal(t, "Szkolenie: Szkolenie saunamistrzów (zaliczka)", invoices.requests[0].Lines[0].Description)
	assert.Equal(t, 300.0, invoices.requests[0].Total)

	stored, err := fakeBookings{db}.FindByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "inv-1", stored.InvoiceID)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "anna@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].subject, "Szkolenie saunamistrzów")
	assert.Contains(t, mailer.sent[0].body, "pozostało 900.00 PLN")
	assert.Contains(t, mailer.sent[0].body, "czeka na potwierdzenie")

	require.Len(t, events.published, 1)
	assert.Equal(t, models.EventTrainingBooked, events.published[0].eventType)
	var evt models.PaymentEvent
	require.NoError(t, json.Unmarshal(events.published[0].message, &evt))
	assert.Equal(t, trainingID.Hex(), evt.TrainingID)
	assert.Equal(t, int64(30000), evt.Amount)
}
