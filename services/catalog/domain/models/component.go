// Package models holds the catalog's component hierarchy: plain items,
// bundles that compose other components, and discounted items adapted
// from special offers. All three satisfy Component and callers treat
// them uniformly.
package models

import "github.com/shopspring/decimal"

// Component is the contract shared by every catalog entry.
type Component interface {
	// Code is the identifier the entry is registered under. Never changes.
	Code() string
	// Price is non-negative for items and bundles of items; see DiscountedItem.
	Price() decimal.Decimal
	// Display is a human-readable summary, possibly spanning several lines.
	Display() string
}

var (
	_ Component = (*Item)(nil)
	_ Component = (*Bundle)(nil)
	_ Component = (*DiscountedItem)(nil)
)
