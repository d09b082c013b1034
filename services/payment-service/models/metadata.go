package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PurchaseKind discriminates the two metadata shapes attached to a checkout session.
type PurchaseKind string

const (
	PurchaseMerchandise PurchaseKind = "merchandise"
	PurchaseTraining    PurchaseKind = "training_booking"
)

// Metadata keys written at session creation and read back by the webhook.
const (
	MetaType            = "type"
	MetaItems           = "items"
	MetaShippingAddress = "shippingAddress"
	MetaTrainingID      = "trainingId"
	MetaParticipantInfo = "participantInfo"
	MetaUserID          = "userId"
	MetaGuestEmail      = "guestEmail"
	MetaFullAmount      = "fullAmount"
	MetaDepositAmount   = "depositAmount"
)

// Stripe rejects metadata values longer than 500 characters, so the items
// array is split over items, items_1, items_2...
const metadataValueLimit = 500

var ErrInvalidMetadata = errors.New("invalid checkout session metadata")

var validate = validator.New()

// KindOf reads the purchase kind. Anything other than a training booking is merchandise.
func KindOf(meta map[string]string) PurchaseKind {
	if meta[MetaType] == string(PurchaseTraining) {
		return PurchaseTraining
	}
	return PurchaseMerchandise
}

// CheckoutItem is one line of a merchandise checkout. VariantSelections maps
// variant id to option id.
type CheckoutItem struct {
	ProductID         string            `json:"productId" validate:"required"`
	VariantSelections map[string]string `json:"variantSelections,omitempty"`
	Quantity          int               `json:"quantity" validate:"required,min=1"`
	PricePerItem      float64           `json:"pricePerItem" validate:"gte=0"`
}

// SortedSelections returns the variant ids of the item in a stable order.
func (i CheckoutItem) SortedSelections() []string {
	keys := make([]string, 0, len(i.VariantSelections))
	for k := range i.VariantSelections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type MerchandiseMetadata struct {
	ShippingAddress Address        `validate:"required"`
	Items           []CheckoutItem `validate:"required,min=1,dive"`
}

type TrainingMetadata struct {
	TrainingID    string          `validate:"required,len=24,hexadecimal"`
	Participant   ParticipantInfo `validate:"required"`
	UserID        string
	GuestEmail    string  `validate:"omitempty,email"`
	FullAmount    float64 `validate:"gt=0"`
	DepositAmount float64 `validate:"gt=0,ltefield=FullAmount"`
}

// PaymentType is full when the deposit covers the whole price.
func (m TrainingMetadata) PaymentType() PaymentType {
	if m.DepositAmount == m.FullAmount {
		return PaymentTypeFull
	}
	return PaymentTypeDeposit
}

func (m MerchandiseMetadata) Encode() (map[string]string, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	addr, err := json.Marshal(m.ShippingAddress)
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(m.Items)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		MetaType:            string(PurchaseMerchandise),
		MetaShippingAddress: string(addr),
	}
	if len(addr) > metadataValueLimit {
		return nil, fmt.Errorf("%w: shipping address too long", ErrInvalidMetadata)
	}
	for i, chunk := range chunk(string(items), metadataValueLimit) {
		meta[chunkKey(MetaItems, i)] = chunk
	}
	return meta, nil
}

func ParseMerchandiseMetadata(meta map[string]string) (*MerchandiseMetadata, error) {
	var m MerchandiseMetadata
	if err := json.Unmarshal([]byte(meta[MetaShippingAddress]), &m.ShippingAddress); err != nil {
		return nil, fmt.Errorf("%w: shippingAddress: %v", ErrInvalidMetadata, err)
	}
	var raw strings.Builder
	for i := 0; ; i++ {
		part, ok := meta[chunkKey(MetaItems, i)]
		if !ok {
			break
		}
		raw.WriteString(part)
	}
	if err := json.Unmarshal([]byte(raw.String()), &m.Items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrInvalidMetadata, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return &m, nil
}

func (m TrainingMetadata) Encode() (map[string]string, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	participant, err := json.Marshal(m.Participant)
	if err != nil {
		return nil, err
	}
	if len(participant) > metadataValueLimit {
		return nil, fmt.Errorf("%w: participant info too long", ErrInvalidMetadata)
	}

	meta := map[string]string{
		MetaType:            string(PurchaseTraining),
		MetaTrainingID:      m.TrainingID,
		MetaParticipantInfo: string(participant),
		MetaFullAmount:      strconv.FormatFloat(m.FullAmount, 'f', -1, 64),
		MetaDepositAmount:   strconv.FormatFloat(m.DepositAmount, 'f', -1, 64),
	}
	if m.UserID != "" {
		meta[MetaUserID] = m.UserID
	}
	if m.GuestEmail != "" {
		meta[MetaGuestEmail] = m.GuestEmail
	}
	return meta, nil
}

func ParseTrainingMetadata(meta map[string]string) (*TrainingMetadata, error) {
	m := TrainingMetadata{
		TrainingID: meta[MetaTrainingID],
		UserID:     meta[MetaUserID],
		GuestEmail: meta[MetaGuestEmail],
	}
	if err := json.Unmarshal([]byte(meta[MetaParticipantInfo]), &m.Participant); err != nil {
		return nil, fmt.Errorf("%w: participantInfo: %v", ErrInvalidMetadata, err)
	}

	var err error
	if m.FullAmount, err = strconv.ParseFloat(meta[MetaFullAmount], 64); err != nil {
		return nil, fmt.Errorf("%w: fullAmount: %v", ErrInvalidMetadata, err)
	}
	if m.DepositAmount, err = strconv.ParseFloat(meta[MetaDepositAmount], 64); err != nil {
		return nil, fmt.Errorf("%w: depositAmount: %v", ErrInvalidMetadata, err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return &m, nil
}

func chunkKey(base string, i int) string {
	if i == 0 {
		return base
	}
	return base + "_" + strconv.Itoa(i)
}

func chunk(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}
