package models

import "github.com/shopspring/decimal"

// Kind names the registry a component lives in.
type Kind string

const (
	KindItem     Kind = "item"
	KindBundle   Kind = "bundle"
	KindDiscount Kind = "discount"
)

// Listing is an immutable snapshot of a component taken at read time.
// Safe to hand to callers outside the facade's lock.
type Listing struct {
	Kind     Kind
	Code     string
	Name     string
	Display  string
	Price    decimal.Decimal
	Children []string // direct child codes; bundles only
}

// NewListing snapshots c. Name and child codes are filled in for the
// variants that carry them.
func NewListing(kind Kind, c Component) Listing {
	l := Listing{
		Kind:    kind,
		Code:    c.Code(),
		Display: c.Display(),
		Price:   c.Price(),
	}
	if n, ok := c.(interface{ Name() string }); ok {
		l.Name = n.Name()
	}
	if comp, ok := c.(interface{ Children() []Component }); ok {
		children := comp.Children()
		l.Children = make([]string, 0, len(children))
		for _, child := range children {
			l.Children = append(l.Children, child.Code())
		}
	}
	return l
}
