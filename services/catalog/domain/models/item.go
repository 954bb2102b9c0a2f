package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ghuser/productcatalog/services/catalog/domain"
)

// Item is the leaf of the catalog: a single product with a fixed unit price.
type Item struct {
	code      ItemCode
	name      ItemName
	unitPrice decimal.Decimal
}

// NewItem constructs an Item. The unit price must not be negative.
func NewItem(code ItemCode, name ItemName, unitPrice decimal.Decimal) (*Item, error) {
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", domain.ErrInvalidPrice, unitPrice)
	}
	return &Item{code: code, name: name, unitPrice: unitPrice}, nil
}

func (i *Item) Code() string { return i.code.String() }

func (i *Item) Name() string { return i.name.String() }

func (i *Item) Price() decimal.Decimal { return i.unitPrice }

func (i *Item) Display() string {
	return fmt.Sprintf("Product: %s (Price: $%s)", i.name, i.unitPrice)
}
