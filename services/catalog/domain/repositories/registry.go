package repositories

import (
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
)

// Registry is a keyed collection of catalog components of one kind.
// The domain layer owns this interface; infrastructure implements it.
//
// Codes are unique within a registry: Add rejects a code that is already
// present with domain.ErrDuplicateCode, so Find and Remove always agree on
// which element a code refers to.
type Registry[T models.Component] interface {
	// Add appends item. Fails with domain.ErrDuplicateCode if the code is taken.
	Add(item T) error

	// Find returns the element registered under code or a not-found error
	// matching domain.ErrNotFound.
	Find(code string) (T, error)

	// Remove deletes the element registered under code and returns it.
	Remove(code string) (T, error)

	// List returns all elements in insertion order.
	List() []T

	// Len returns the number of registered elements.
	Len() int
}
