package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ghuser/productcatalog/services/catalog/domain"
)

const bundleIndent = "  "

// Bundle is a composite component. Its price and display are derived from
// its children, which it references but does not exclusively own: the same
// item may also be registered on its own or appear in other bundles.
type Bundle struct {
	code     ItemCode
	name     ItemName
	children []Component
}

// NewBundle returns an empty Bundle.
func NewBundle(code ItemCode, name ItemName) *Bundle {
	return &Bundle{code: code, name: name}
}

// Add appends child after the existing children. Duplicates are allowed.
// Adding the bundle to itself, directly or through a nested bundle, fails
// with ErrBundleCycle and leaves the bundle unchanged.
func (b *Bundle) Add(child Component) error {
	if child == nil {
		return fmt.Errorf("bundle %s: nil child", b.code)
	}
	if nested, ok := child.(*Bundle); ok && (nested == b || nested.contains(b)) {
		return fmt.Errorf("%w: %s into %s", domain.ErrBundleCycle, nested.code, b.code)
	}
	b.children = append(b.children, child)
	return nil
}

// contains reports whether target is reachable from b's children.
// Terminates because Add never lets a cycle form.
func (b *Bundle) contains(target *Bundle) bool {
	for _, c := range b.children {
		nested, ok := c.(*Bundle)
		if !ok {
			continue
		}
		if nested == target || nested.contains(target) {
			return true
		}
	}
	return false
}

func (b *Bundle) Code() string { return b.code.String() }

func (b *Bundle) Name() string { return b.name.String() }

// Price is the sum of the children's prices; zero for an empty bundle.
func (b *Bundle) Price() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.children {
		total = total.Add(c.Price())
	}
	return total
}

// Display renders a header line followed by every child's display in
// insertion order, each line of a child indented by two spaces.
func (b *Bundle) Display() string {
	var sb strings.Builder
	sb.WriteString("Bundle: ")
	sb.WriteString(b.name.String())
	for _, c := range b.children {
		sb.WriteByte('\n')
		sb.WriteString(bundleIndent)
		sb.WriteString(strings.ReplaceAll(c.Display(), "\n", "\n"+bundleIndent))
	}
	return sb.String()
}

// Children returns a copy of the child sequence in insertion order.
func (b *Bundle) Children() []Component {
	out := make([]Component, len(b.children))
	copy(out, b.children)
	return out
}

// Len returns the number of direct children.
func (b *Bundle) Len() int { return len(b.children) }
