package models

import "fmt"

// ItemCode identifies a catalog component within its registry.
// Structural rule: 1 <= len(code) <= 64. Business rules live in domain/services.
type ItemCode string

const (
	minItemCodeLength = 1
	maxItemCodeLength = 64
)

// NewItemCode constructs a valid ItemCode or returns an error if constraints are violated.
func NewItemCode(s string) (ItemCode, error) {
	if len(s) < minItemCodeLength {
		return "", fmt.Errorf("code must be at least %d character", minItemCodeLength)
	}
	if len(s) > maxItemCodeLength {
		return "", fmt.Errorf("code must not exceed %d characters", maxItemCodeLength)
	}
	return ItemCode(s), nil
}

// String returns the underlying string value.
func (c ItemCode) String() string {
	return string(c)
}
