// Package memory implements the catalog repositories on process memory.
// Nothing here survives a restart.
package memory

import (
	"fmt"
	"slices"

	"github.com/ghuser/productcatalog/services/catalog/domain"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
	"github.com/ghuser/productcatalog/services/catalog/domain/repositories"
)

// Registry implements repositories.Registry over an ordered slice.
// Lookups are linear; catalog sizes are small.
// Not safe for concurrent use: callers serialise access.
type Registry[T models.Component] struct {
	items    []T
	notFound error
}

var _ repositories.Registry[models.Component] = (*Registry[models.Component])(nil)

// NewRegistry returns an empty Registry. notFound is the sentinel wrapped
// into lookup failures (e.g. domain.ErrBundleNotFound); nil means domain.ErrNotFound.
func NewRegistry[T models.Component](notFound error) *Registry[T] {
	if notFound == nil {
		notFound = domain.ErrNotFound
	}
	return &Registry[T]{notFound: notFound}
}

// Add appends item unless its code is already registered.
func (r *Registry[T]) Add(item T) error {
	code := item.Code()
	if r.indexOf(code) >= 0 {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateCode, code)
	}
	r.items = append(r.items, item)
	return nil
}

// Find returns the element registered under code.
func (r *Registry[T]) Find(code string) (T, error) {
	i := r.indexOf(code)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%w: %q", r.notFound, code)
	}
	return r.items[i], nil
}

// Remove deletes and returns the element registered under code.
func (r *Registry[T]) Remove(code string) (T, error) {
	i := r.indexOf(code)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%w: %q", r.notFound, code)
	}
	removed := r.items[i]
	r.items = slices.Delete(r.items, i, i+1)
	return removed, nil
}

// List returns a copy of the registered elements in insertion order.
func (r *Registry[T]) List() []T {
	return slices.Clone(r.items)
}

func (r *Registry[T]) Len() int {
	return len(r.items)
}

func (r *Registry[T]) indexOf(code string) int {
	return slices.IndexFunc(r.items, func(item T) bool {
		return item.Code() == code
	})
}
