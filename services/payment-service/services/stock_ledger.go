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

var ErrProductNotFound = errors.New("product not found")

// StockUnknown marks an InsufficientStockError whose remaining stock could not
// be read back after a lost decrement.
const StockUnknown = -1

// InsufficientStockError names the option that could not cover a line item.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	OptionID    string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	if e.Available == StockUnknown {
		return fmt.Sprintf("insufficient stock for %q (option %s): requested %d, available unknown",
			e.ProductName, e.OptionID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %q (option %s): requested %d, available %d",
		e.ProductName, e.OptionID, e.Requested, e.Available)
}

// Shortfall is zero when the available stock is unknown.
func (e *InsufficientStockError) Shortfall() int {
	if e.Available == StockUnknown {
		return 0
	}
	return e.Requested - e.Available
}

// StockLedger applies the stock side of a paid merchandise order.
type StockLedger struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewStockLedger(products repository.ProductRepository, logger *zap.Logger) *StockLedger {
	return &StockLedger{products: products, logger: logger}
}

// Apply walks the items in order, decrementing each selected option, and
// returns the order lines snapshotted from the catalog. It stops at the first
// failure; earlier decrements are undone only if ctx carries a transaction.
func (l *StockLedger) Apply(ctx context.Context, items []models.CheckoutItem) ([]models.OrderItem, error) {
	lines := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id %q", ErrProductNotFound, item.ProductID)
		}
		product, err := l.products.FindByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}

		line := models.OrderItem{
			ProductID: productID,
			Name:      product.Name,
			Price:     item.PricePerItem,
			Quantity:  item.Quantity,
		}

		for _, variantID := range item.SortedSelections() {
			optionID := item.VariantSelections[variantID]
			variant, option := product.FindOption(variantID, optionID)
			if option == nil {
				l.logger.Warn("Variant selection not found in catalog, skipping",
					zap.String("product_id", item.ProductID),
					zap.String("variant_id", variantID),
					zap.String("option_id", optionID),
					zap.Bool("variant_found", variant != nil),
				)
				continue
			}

			if option.Stock < item.Quantity {
				return nil, l.shortfall(product, option, item.Quantity, option.Stock)
			}
			err := l.products.DecrementOptionStock(ctx, productID, variant.ID, option.ID, item.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				// Sold concurrently between the read and the conditional update.
				return nil, l.shortfall(product, option, item.Quantity, l.currentStock(ctx, productID, variantID, optionID, item.Quantity))
			}
			if err != nil {
				return nil, fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
			}

			line.Variants = append(line.Variants, models.SelectedVariant{
				VariantID:   variant.ID.Hex(),
				VariantName: variant.Name,
				OptionID:    option.ID.Hex(),
				OptionValue: option.Value,
			})
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// currentStock re-reads an option after its conditional decrement failed.
func (l *StockLedger) currentStock(ctx context.Context, productID primitive.ObjectID, variantID, optionID string, requested int) int {
	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		l.logger.Warn("Could not re-read stock after failed decrement",
			zap.String("product_id", productID.Hex()),
			zap.Error(err),
		)
		return StockUnknown
	}
	_, option := product.FindOption(variantID, optionID)
	if option == nil || option.Stock >= requested {
		return StockUnknown
	}
	return option.Stock
}

func (l *StockLedger) shortfall(p *models.Product, o *models.VariantOption, requested, available int) error {
	err := &InsufficientStockError{
		ProductID:   p.ID.Hex(),
		ProductName: p.Name,
		OptionID:    o.ID.Hex(),
		Requested:   requested,
		Available:   available,
	}
	l.logger.Warn("Insufficient stock",
		zap.String("product_id", err.ProductID),
		zap.String("option_id", err.OptionID),
		zap.Int("requested", requested),
		zap.Int("available", available),
	)
	return err
}
