package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ghuser/productcatalog/services/catalog/domain"
)

var (
	hundred         = decimal.NewFromInt(100)
	minDiscountRate = decimal.Zero
	maxDiscountRate = hundred
)

// SpecialOffer is a promotion on a single item. It speaks its own vocabulary
// (Details, DiscountedPrice) and is brought into the catalog through
// DiscountedItem.
type SpecialOffer struct {
	offerName    string
	discountRate decimal.Decimal
	original     *Item
}

// NewSpecialOffer validates rate against [0, 100] and builds the offer.
func NewSpecialOffer(offerName string, rate decimal.Decimal, original *Item) (*SpecialOffer, error) {
	if original == nil {
		return nil, fmt.Errorf("%w: offer %q has no item", domain.ErrInvalidDiscount, offerName)
	}
	if rate.LessThan(minDiscountRate) || rate.GreaterThan(maxDiscountRate) {
		return nil, fmt.Errorf("%w: rate %s outside [%s, %s]", domain.ErrInvalidDiscount, rate, minDiscountRate, maxDiscountRate)
	}
	return &SpecialOffer{offerName: offerName, discountRate: rate, original: original}, nil
}

// Details describes the offer without mentioning the original item.
func (o *SpecialOffer) Details() string {
	return fmt.Sprintf("Special Offer: %s (Discount: %s%%)", o.offerName, o.discountRate)
}

// DiscountedPrice is original price * (1 - rate/100).
func (o *SpecialOffer) DiscountedPrice() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(o.discountRate.Div(hundred))
	return o.original.Price().Mul(factor)
}

// Code is the code of the discounted item.
func (o *SpecialOffer) Code() string { return o.original.Code() }

func (o *SpecialOffer) OfferName() string { return o.offerName }

func (o *SpecialOffer) Rate() decimal.Decimal { return o.discountRate }

func (o *SpecialOffer) Original() *Item { return o.original }

// DiscountedItem adapts a SpecialOffer to the Component contract.
type DiscountedItem struct {
	offer *SpecialOffer
}

// NewDiscountedItem wraps offer.
func NewDiscountedItem(offer *SpecialOffer) *DiscountedItem {
	return &DiscountedItem{offer: offer}
}

// Code is shared with the source item, so the discount is found under the
// same code in the discount registry.
func (d *DiscountedItem) Code() string { return d.offer.Code() }

func (d *DiscountedItem) Price() decimal.Decimal { return d.offer.DiscountedPrice() }

// Display is the offer text only; the source item's own display is not included.
func (d *DiscountedItem) Display() string { return d.offer.Details() }

// Name is the offer name.
func (d *DiscountedItem) Name() string { return d.offer.OfferName() }

// Offer returns the adapted offer.
func (d *DiscountedItem) Offer() *SpecialOffer { return d.offer }
