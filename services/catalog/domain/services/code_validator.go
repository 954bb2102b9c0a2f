// Package services contains stateless domain services for the catalog bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have zero external dependencies beyond stdlib and the domain layer.
package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ghuser/productcatalog/services/catalog/domain/models"
)

// ValidateCode enforces business rules for ItemCode beyond the length
// constraints enforced by the ItemCode constructor.
//
// Business rules:
//   - No whitespace anywhere (codes are typed at a prompt and used in URLs)
//   - No control characters (Unicode category Cc)
func ValidateCode(code models.ItemCode) error {
	for _, r := range code.String() {
		if unicode.IsControl(r) {
			return fmt.Errorf("item code must not contain control characters")
		}
		if unicode.IsSpace(r) {
			return fmt.Errorf("item code must not contain whitespace")
		}
	}
	return nil
}

// ValidateName enforces business rules for ItemName beyond the structural
// constraints enforced by the ItemName constructor (length 1–255).
//
// Business rules:
//   - No leading or trailing whitespace
//   - No control characters (Unicode category Cc)
//   - No consecutive spaces
//   - Must not be only whitespace characters
func ValidateName(name models.ItemName) error {
	s := name.String()

	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name must not be only whitespace")
	}

	if s != strings.TrimSpace(s) {
		return fmt.Errorf("name must not have leading or trailing whitespace")
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return fmt.Errorf("name must not contain control characters")
		}
	}

	if strings.Contains(s, "  ") {
		return fmt.Errorf("name must not contain consecutive spaces")
	}

	return nil
}
