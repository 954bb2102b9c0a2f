package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/productcatalog/services/catalog/domain"
)

// mustItem builds an Item from primitives for tests.
func mustItem(t *testing.T, code, name string, price int64) *Item {
	t.Helper()
	item, err := NewItem(ItemCode(code), ItemName(name), decimal.NewFromInt(price))
	require.NoError(t, err)
	return item
}

func TestNewItem(t *testing.T) {
	t.Run("price_is_returned_unchanged", func(t *testing.T) {
		item, err := NewItem("A", "Widget", decimal.RequireFromString("19.99"))
		require.NoError(t, err)

		assert.Equal(t, "A", item.Code())
		assert.Equal(t, "Widget", item.Name())
		assert.True(t, item.Price().Equal(decimal.RequireFromString("19.99")))
	})

	t.Run("zero_price_is_allowed", func(t *testing.T) {
		item, err := NewItem("FREE", "Sticker", decimal.Zero)
		require.NoError(t, err)
		assert.True(t, item.Price().IsZero())
	})

	t.Run("negative_price_is_rejected", func(t *testing.T) {
		_, err := NewItem("A", "Widget", decimal.NewFromInt(-1))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
}

func TestItem_Display(t *testing.T) {
	item := mustItem(t, "A", "Widget", 100)
	assert.Equal(t, "Product: Widget (Price: $100)", item.Display())
}
