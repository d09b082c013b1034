package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory database ---

type memDB struct {
	mu        sync.Mutex
	products  map[primitive.ObjectID]*models.Product
	trainings map[primitive.ObjectID]*models.Training
	orders    []*models.Order
	bookings  []*models.TrainingBooking

	// staleGuard makes ExistsForSession miss existing records, like a
	// concurrent delivery that read before the first insert committed.
	staleGuard bool
}

func newMemDB() *memDB {
	return &memDB{
		products:  make(map[primitive.ObjectID]*models.Product),
		trainings: make(map[primitive.ObjectID]*models.Training),
	}
}

type memSnapshot struct {
	products  map[primitive.ObjectID]*models.Product
	trainings map[primitive.ObjectID]*models.Training
	orders    []*models.Order
	bookings  []*models.TrainingBooking
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		products:  make(map[primitive.ObjectID]*models.Product, len(db.products)),
		trainings: make(map[primitive.ObjectID]*models.Training, len(db.trainings)),
		orders:    append([]*models.Order(nil), db.orders...),
		bookings:  append([]*models.TrainingBooking(nil), db.bookings...),
	}
	for id, p := range db.products {
		s.products[id] = cloneProduct(p)
	}
	for id, t := range db.trainings {
		c := *t
		s.trainings[id] = &c
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products, db.trainings, db.orders, db.bookings = s.products, s.trainings, s.orders, s.bookings
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	c.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Options = append([]models.VariantOption(nil), v.Options...)
		c.Variants[i] = v
	}
	return &c
}

type seededProduct struct {
	ID, VariantID, OptionID primitive.ObjectID
}

func (s seededProduct) selection() map[string]string {
	return map[string]string{s.VariantID.Hex(): s.OptionID.Hex()}
}

func (db *memDB) addProduct(name string, price float64, stock int) seededProduct {
	s := seededProduct{ID: primitive.NewObjectID(), VariantID: primitive.NewObjectID(), OptionID: primitive.NewObjectID()}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products[s.ID] = &models.Product{
		ID:        s.ID,
		Name:      name,
		BasePrice: price,
		IsActive:  true,
		Variants: []models.Variant{{
			ID:      s.VariantID,
			Name:    "Rozmiar",
			Options: []models.VariantOption{{ID: s.OptionID, Value: "M", Stock: stock}},
		}},
	}
	return s
}

func (db *memDB) stock(s seededProduct) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, o := db.products[s.ID].FindOption(s.VariantID.Hex(), s.OptionID.Hex())
	return o.Stock
}

func (db *memDB) addTraining(price, deposit float64, current, max int) primitive.ObjectID {
	id := primitive.NewObjectID()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.trainings[id] = &models.Training{
		ID:                  id,
		Title:               "Szkolenie saunamistrzów",
		Slug:                "szkolenie-saunamistrzow",
		Price:               price,
		DepositAmount:       deposit,
		MaxParticipants:     max,
		CurrentParticipants: current,
		IsActive:            true,
	}
	return id
}

func (db *memDB) participants(id primitive.ObjectID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.trainings[id].CurrentParticipants
}

func (db *memDB) ordersFor(sessionID string) []*models.Order {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.Order
	for _, o := range db.orders {
		if o.StripeSessionID == sessionID {
			out = append(out, o)
		}
	}
	return out
}

func (db *memDB) bookingsFor(sessionID string) []*models.TrainingBooking {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.TrainingBooking
	for _, b := range db.bookings {
		if b.StripeSessionID == sessionID {
			out = append(out, b)
		}
	}
	return out
}

// --- Store ---

// fakeStore serializes units of work and rolls back on error when atomic.
type fakeStore struct {
	db     *memDB
	atomic bool
	tx     sync.Mutex
}

func (s *fakeStore) Atomic() bool { return s.atomic }

func (s *fakeStore) WithUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.atomic {
		return fn(ctx)
	}
	s.tx.Lock()
	defer s.tx.Unlock()

	snap := s.db.snapshot()
	if err := fn(ctx); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

// --- Repositories ---

type fakeProducts struct{ db *memDB }

func (r fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r fakeProducts) option(productID, variantID, optionID primitive.ObjectID) *models.VariantOption {
	p, ok := r.db.products[productID]
	if !ok {
		return nil
	}
	_, o := p.FindOption(variantID.Hex(), optionID.Hex())
	return o
}

func (r fakeProducts) DecrementOptionStock(_ context.Context, productID, variantID, optionID primitive.ObjectID, qty int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.option(productID, variantID, optionID)
	if o == nil || o.Stock < qty {
		return repository.ErrInsufficientStock
	}
	o.Stock -= qty
	return nil
}

func (r fakeProducts) SetOptionStock(_ context.Context, productID, variantID, optionID primitive.ObjectID, stock int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.option(productID, variantID, optionID)
	if o == nil {
		return repository.ErrNotFound
	}
	o.Stock = stock
	return nil
}

type fakeOrders struct{ db *memDB }

func (r fakeOrders) ExistsForSession(_ context.Context, sessionID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.staleGuard {
		return false, nil
	}
	for _, o := range r.db.orders {
		if o.StripeSessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeOrders) Create(_ context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.orders {
		if o.StripeSessionID == order.StripeSessionID {
			return repository.ErrDuplicateSession
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	c := *order
	r.db.orders = append(r.db.orders, &c)
	return nil
}

func (r fakeOrders) find(id primitive.ObjectID) *models.Order {
	for _, o := range r.db.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.find(id)
	if o == nil {
		return nil, repository.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r fakeOrders) List(_ context.Context, f repository.OrderFilter) ([]models.Order, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.Order
	for _, o := range r.db.orders {
		if f.Status == "" || o.Status == f.Status {
			matched = append(matched, *o)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []models.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r fakeOrders) update(id primitive.ObjectID, fn func(o *models.Order)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.find(id)
	if o == nil {
		return repository.ErrNotFound
	}
	fn(o)
	return nil
}

func (r fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.find(id)
	if o == nil {
		return repository.ErrNotFound
	}
	if o.Status != from {
		return repository.ErrStatusChanged
	}
	o.Status = to
	return nil
}

func (r fakeOrders) SetTracking(_ context.Context, id primitive.ObjectID, trackingNumber string) error {
	return r.update(id, func(o *models.Order) { o.TrackingNumber = trackingNumber })
}

func (r fakeOrders) SetInvoice(_ context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error {
	return r.update(id, func(o *models.Order) { o.InvoiceID, o.InvoiceURL = invoiceID, invoiceURL })
}

type fakeTrainings struct{ db *memDB }

func (r fakeTrainings) FindByID(_ context.Context, id primitive.ObjectID) (*models.Training, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.trainings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r fakeTrainings) IncrementParticipants(_ context.Context, id primitive.ObjectID) (*models.Training, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.trainings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return nil, repository.ErrTrainingFull
	}
	t.CurrentParticipants++
	c := *t
	return &c, nil
}

func (r fakeTrainings) DecrementParticipants(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.trainings[id]; ok && t.CurrentParticipants > 0 {
		t.CurrentParticipants--
	}
	return nil
}

type fakeBookings struct{ db *memDB }

func (r fakeBookings) ExistsForSession(_ context.Context, sessionID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.staleGuard {
		return false, nil
	}
	for _, b := range r.db.bookings {
		if b.StripeSessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeBookings) Create(_ context.Context, booking *models.TrainingBooking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.bookings {
		if b.StripeSessionID == booking.StripeSessionID {
			return repository.ErrDuplicateSession
		}
	}
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	c := *booking
	r.db.bookings = append(r.db.bookings, &c)
	return nil
}

func (r fakeBookings) find(id primitive.ObjectID) *models.TrainingBooking {
	for _, b := range r.db.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (r fakeBookings) FindByID(_ context.Context, id primitive.ObjectID) (*models.TrainingBooking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b := r.find(id)
	if b == nil {
		return nil, repository.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r fakeBookings) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.BookingStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b := r.find(id)
	if b == nil {
		return repository.ErrNotFound
	}
	if b.BookingStatus != from {
		return repository.ErrStatusChanged
	}
	b.BookingStatus = to
	return nil
}

func (r fakeBookings) SetInvoice(_ context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b := r.find(id)
	if b == nil {
		return repository.ErrNotFound
	}
	b.InvoiceID, b.InvoiceURL = invoiceID, invoiceURL
	return nil
}

// --- Collaborators ---

type recordingNotifier struct {
	mu       sync.Mutex
	orders   []*models.Order
	bookings []*models.TrainingBooking
}

func (n *recordingNotifier) OrderPaid(_ context.Context, order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func (n *recordingNotifier) TrainingBooked(_ context.Context, booking *models.TrainingBooking, _ *models.Training) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, booking)
}

func (n *recordingNotifier) calls() (orders, bookings int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders), len(n.bookings)
}

type fakeReviewQueue struct {
	mu       sync.Mutex
	enqueued []models.ManualReview
	err      error
}

func (q *fakeReviewQueue) Enqueue(_ context.Context, review models.ManualReview) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, review)
	return nil
}

type stubLocker struct{ err error }

func (l stubLocker) Acquire(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

var errBackendDown = errors.New("connection refused")

// --- Events ---

func sessionEvent(t *testing.T, sessionID string, amountTotal int64, meta map[string]string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":             sessionID,
		"object":         "checkout.session",
		"amount_total":   amountTotal,
		"currency":       "pln",
		"customer_email": "jan@example.com",
		"payment_status": "paid",
		"metadata":       meta,
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_" + sessionID,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func merchandiseMeta(t *testing.T, items ...models.CheckoutItem) map[string]string {
	t.Helper()
	meta, err := models.MerchandiseMetadata{
		ShippingAddress: models.Address{
			Name:    "Jan Kowalski",
			Email:   "jan@example.com",
			Phone:   "+48 600 100 200",
			Street:  "Ul. Przykładowa 1",
			City:    "Kraków",
			Zip:     "30-001",
			Country: "PL",
		},
		Items: items,
	}.Encode()
	require.NoError(t, err)
	return meta
}

func trainingMeta(t *testing.T, trainingID primitive.ObjectID, full, deposit float64) map[string]string {
	t.Helper()
	meta, err := models.TrainingMetadata{
		TrainingID:    trainingID.Hex(),
		Participant:   models.ParticipantInfo{Name: "Anna Nowak", Email: "anna@example.com", Phone: "+48 600 300 400"},
		GuestEmail:    "anna@example.com",
		FullAmount:    full,
		DepositAmount: deposit,
	}.Encode()
	require.NoError(t, err)
	return meta
}
