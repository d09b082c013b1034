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
	ErrUnknownOption    = errors.New("selected variant option does not exist")
	ErrTrainingInactive = errors.New("training is not open for booking")
)

type CartItem struct {
	ProductID         string            `json:"productId" binding:"required"`
	VariantSelections map[string]string `json:"variantSelections"`
	Quantity          int               `json:"quantity" binding:"required,min=1"`
}

type MerchandiseCheckoutRequest struct {
	Items           []CartItem     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.Address `json:"shippingAddress" binding:"required"`
}

type TrainingCheckoutRequest struct {
	TrainingID  string                 `json:"trainingId" binding:"required"`
	Participant models.ParticipantInfo `json:"participantInfo" binding:"required"`
	PaymentType models.PaymentType     `json:"paymentType" binding:"omitempty,oneof=full deposit"`
	GuestEmail  string                 `json:"guestEmail" binding:"omitempty,email"`
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CheckoutService opens Stripe sessions whose metadata the reconciler reads
// back when the payment completes.
type CheckoutService struct {
	products    repository.ProductRepository
	trainings   repository.TrainingRepository
	sessions    SessionCreator
	frontendURL string
	currency    string
	logger      *zap.Logger
}

func NewCheckoutService(products repository.ProductRepository, trainings repository.TrainingRepository, sessions SessionCreator, frontendURL, currency string, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		products:    products,
		trainings:   trainings,
		sessions:    sessions,
		frontendURL: frontendURL,
		currency:    currency,
		logger:      logger,
	}
}

func (s *CheckoutService) CreateMerchandiseCheckout(ctx context.Context, req MerchandiseCheckoutRequest) (*CheckoutResult, error) {
	meta := models.MerchandiseMetadata{ShippingAddress: req.ShippingAddress}
	lines := make([]CheckoutLine, 0, len(req.Items))

	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		product, err := s.products.FindByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !product.IsActive) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return nil, err
		}

		checkoutItem := models.CheckoutItem{
			ProductID:         item.ProductID,
			VariantSelections: item.VariantSelections,
			Quantity:          item.Quantity,
		}
		price := product.BasePrice
		name := product.Name
		for _, variantID := range checkoutItem.SortedSelections() {
			variant, option := product.FindOption(variantID, item.VariantSelections[variantID])
			if option == nil {
				return nil, fmt.Errorf("%w: %s/%s", ErrUnknownOption, item.ProductID, variantID)
			}
			if option.Stock < item.Quantity {
				return nil, &InsufficientStockError{
					ProductID:   item.ProductID,
					ProductName: product.Name,
					OptionID:    option.ID.Hex(),
					Requested:   item.Quantity,
					Available:   option.Stock,
				}
			}
			price += option.PriceModifier
			name += fmt.Sprintf(" (%s: %s)", variant.Name, option.Value)
		}

		checkoutItem.PricePerItem = price
		meta.Items = append(meta.Items, checkoutItem)
		lines = append(lines, CheckoutLine{Name: name, UnitPrice: price, Quantity: item.Quantity})
	}

	metadata, err := meta.Encode()
	if err != nil {
		return nil, err
	}
	return s.open(ctx, CheckoutSessionRequest{
		Lines:         lines,
		Currency:      s.currency,
		CustomerEmail: req.ShippingAddress.Email,
		SuccessURL:    s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.frontendURL + "/cart",
		Metadata:      metadata,
	})
}

func (s *CheckoutService) CreateTrainingCheckout(ctx context.Context, req TrainingCheckoutRequest, userID string) (*CheckoutResult, error) {
	trainingID, err := primitive.ObjectIDFromHex(req.TrainingID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTrainingNotFound, req.TrainingID)
	}
	training, err := s.trainings.FindByID(ctx, trainingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrainingNotFound, req.TrainingID)
	}
	if err != nil {
		return nil, err
	}
	if !training.IsActive {
		return nil, ErrTrainingInactive
	}
	if training.SpotsLeft() == 0 {
		return nil, repository.ErrTrainingFull
	}

	charge := training.Price
	if req.PaymentType == models.PaymentTypeDeposit && training.DepositAmount > 0 && training.DepositAmount < training.Price {
		charge = training.DepositAmount
	}

	meta := models.TrainingMetadata{
		TrainingID:    req.TrainingID,
		Participant:   req.Participant,
		UserID:        userID,
		FullAmount:    training.Price,
		DepositAmount: charge,
	}
	if userID == "" {
		meta.GuestEmail = firstNonEmpty(req.GuestEmail, req.Participant.Email)
	}
	metadata, err := meta.Encode()
	if err != nil {
		return nil, err
	}

	name := training.Title
	if meta.PaymentType() == models.PaymentTypeDeposit {
		name += " (zaliczka)"
	}
	return s.open(ctx, CheckoutSessionRequest{
		Lines:         []CheckoutLine{{Name: name, UnitPrice: charge, Quantity: 1}},
		Currency:      s.currency,
		CustomerEmail: req.Participant.Email,
		SuccessURL:    s.frontendURL + "/szkolenia/" + training.Slug + "?booking=success",
		CancelURL:     s.frontendURL + "/szkolenia/" + training.Slug,
		Metadata:      metadata,
	})
}

func (s *CheckoutService) open(ctx context.Context, req CheckoutSessionRequest) (*CheckoutResult, error) {
	sess, err := s.sessions.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Error("Failed to create Stripe checkout session", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("kind", req.Metadata[models.MetaType]),
	)
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}
