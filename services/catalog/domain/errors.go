package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the catalog domain. Use errors.Is() to check these.
var (
	// ErrNotFound is the root of every lookup failure; the kind-specific
	// sentinels below all match it.
	ErrNotFound = errors.New("not found")

	// ErrItemNotFound indicates no plain item is registered under the code.
	ErrItemNotFound = fmt.Errorf("item %w", ErrNotFound)

	// ErrBundleNotFound indicates no bundle is registered under the code.
	ErrBundleNotFound = fmt.Errorf("bundle %w", ErrNotFound)

	// ErrDiscountNotFound indicates no discounted item is registered under the code.
	ErrDiscountNotFound = fmt.Errorf("discount %w", ErrNotFound)

	// ErrDuplicateCode indicates a registry already holds an entry with the same code.
	ErrDuplicateCode = errors.New("code already registered")

	// ErrInvalidItemCode indicates the code violates domain constraints.
	ErrInvalidItemCode = errors.New("invalid item code")

	// ErrInvalidItemName indicates the name violates domain constraints.
	ErrInvalidItemName = errors.New("invalid item name")

	// ErrInvalidPrice indicates a negative unit price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidDiscount indicates a discount rate outside [0, 100] or a missing source item.
	ErrInvalidDiscount = errors.New("invalid discount")

	// ErrBundleCycle indicates that attaching a child would make a bundle contain itself.
	ErrBundleCycle = errors.New("bundle cannot contain itself")
)
