package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VariantOption struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Value         string             `bson:"value" json:"value"`
	PriceModifier float64            `bson:"priceModifier" json:"priceModifier"`
	Stock         int                `bson:"stock" json:"stock"`
}

type Variant struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Options []VariantOption    `bson:"options" json:"options"`
}

type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Slug      string             `bson:"slug" json:"slug"`
	BasePrice float64            `bson:"price" json:"price"`
	Variants  []Variant          `bson:"variants" json:"variants"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindOption locates a variant and one of its options by hex id. Either return
// value is nil when not found.
func (p *Product) FindOption(variantID, optionID string) (*Variant, *VariantOption) {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID.Hex() != variantID {
			continue
		}
		for j := range v.Options {
			if v.Options[j].ID.Hex() == optionID {
				return v, &v.Options[j]
			}
		}
		return v, nil
	}
	return nil, nil
}

type Training struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title               string             `bson:"title" json:"title"`
	Slug                string             `bson:"slug" json:"slug"`
	Location            string             `bson:"location" json:"location"`
	Date                time.Time          `bson:"date" json:"date"`
	Price               float64            `bson:"price" json:"price"`
	DepositAmount       float64            `bson:"depositAmount" json:"depositAmount"`
	MaxParticipants     int                `bson:"maxParticipants" json:"maxParticipants"`
	CurrentParticipants int                `bson:"currentParticipants" json:"currentParticipants"`
	IsActive            bool               `bson:"isActive" json:"isActive"`
}

// SpotsLeft never goes negative, even for rows written before capacity was enforced.
func (t *Training) SpotsLeft() int {
	if left := t.MaxParticipants - t.CurrentParticipants; left > 0 {
		return left
	}
	return 0
}
