package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidStock      = errors.New("stock must not be negative")
)

// AdminService owns orders and bookings after the reconciler created them.
type AdminService struct {
	store     repository.Store
	orders    repository.OrderRepository
	bookings  repository.BookingRepository
	trainings repository.TrainingRepository
	products  repository.ProductRepository
	logger    *zap.Logger
}

func NewAdminService(store repository.Store, orders repository.OrderRepository, bookings repository.BookingRepository,
	trainings repository.TrainingRepository, products repository.ProductRepository, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:     store,
		orders:    orders,
		bookings:  bookings,
		trainings: trainings,
		products:  products,
		logger:    logger,
	}
}

func (s *AdminService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(ctx, filter.Normalized())
}

func (s *AdminService) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *AdminService) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}
	if err := s.orders.UpdateStatus(ctx, id, order.Status, status); err != nil {
		return nil, transitionErr(err, string(order.Status), string(status))
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id.Hex()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)
	order.Status = status
	return order, nil
}

func (s *AdminService) SetTracking(ctx context.Context, id primitive.ObjectID, trackingNumber string) error {
	return s.orders.SetTracking(ctx, id, trackingNumber)
}

// UpdateBookingStatus applies an admin decision. Cancelling a booking gives
// its spot back to the training in the same unit of work.
func (s *AdminService) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.TrainingBooking, error) {
	var booking *models.TrainingBooking
	err := s.store.WithUnitOfWork(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !booking.BookingStatus.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.BookingStatus, status)
		}
		// A lost race fails here, so the spot is released at most once.
		if err := s.bookings.UpdateStatus(ctx, id, booking.BookingStatus, status); err != nil {
			return transitionErr(err, string(booking.BookingStatus), string(status))
		}
		if status == models.BookingStatusCancelled {
			return s.trainings.DecrementParticipants(ctx, booking.TrainingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking status updated",
		zap.String("booking_id", id.Hex()),
		zap.String("from", string(booking.BookingStatus)),
		zap.String("to", string(status)),
	)
	booking.BookingStatus = status
	return booking, nil
}

func transitionErr(err error, from, to string) error {
	if errors.Is(err, repository.ErrStatusChanged) {
		return fmt.Errorf("%w: %s -> %s: %v", ErrInvalidTransition, from, to, err)
	}
	return err
}

func (s *AdminService) SetOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	if err := s.products.SetOptionStock(ctx, productID, variantID, optionID, stock); err != nil {
		return err
	}
	s.logger.Info("Option stock set",
		zap.String("product_id", productID.Hex()),
		zap.String("option_id", optionID.Hex()),
		zap.Int("stock", stock),
	)
	return nil
}
