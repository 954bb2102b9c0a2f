package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/logger"
	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
	catalogdomain "github.com/ghuser/productcatalog/services/catalog/domain"
	"github.com/ghuser/productcatalog/services/catalog/domain/events"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
	"github.com/ghuser/productcatalog/services/catalog/infrastructure/messaging"
)

type published struct {
	topic string
	event events.ListingEvent
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []published
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		ev, err := messaging.DecodeListingEvent(m)
		if err != nil {
			return err
		}
		if topic != events.TopicListings {
			return fmt.Errorf("unexpected topic %q", topic)
		}
		p.got = append(p.got, published{topic: topic, event: ev})
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.got))
	for _, g := range p.got {
		out = append(out, g.event.Type+":"+g.event.Code)
	}
	return out
}

func newFacade(t *testing.T, pub appsvcs.Publisher) (*appsvcs.CatalogFacade, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(&config.Config{LogLevel: "debug"}, buf)
	return appsvcs.NewCatalogFacade(uuid.New(), pub, log), buf
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCatalogFacade_WidgetScenario(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)

	_, err := f.AddItem(ctx, "W1", "Widget", price("10"))
	require.NoError(t, err)
	_, err = f.AddBundle(ctx, "B1", "Starter Pack")
	require.NoError(t, err)

	bundle, err := f.AttachItemToBundle(ctx, "W1", "B1")
	require.NoError(t, err)
	assert.True(t, bundle.Price.Equal(price("10")))
	assert.Equal(t, "Bundle: Starter Pack\n  Product: Widget (Price: $10)", bundle.Display)
	assert.Equal(t, []string{"W1"}, bundle.Children)

	discount, err := f.AddDiscountedItem(ctx, "W1", "Sale", price("20"))
	require.NoError(t, err)
	assert.Equal(t, "W1", discount.Code)
	assert.True(t, discount.Price.Equal(price("8")), "got %s", discount.Price)
	assert.Equal(t, "Special Offer: Sale (Discount: 20%)", discount.Display)

	// The original item is untouched by the discount.
	item, err := f.Item(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(price("10")))
}

func TestCatalogFacade_NestedBundleScenario(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)

	_, _ = f.AddItem(ctx, "W1", "Widget", price("10"))
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")
	_, _ = f.AddBundle(ctx, "B2", "Mega Pack")
	_, err := f.AttachItemToBundle(ctx, "W1", "B1")
	require.NoError(t, err)

	outer, err := f.AttachBundleToBundle(ctx, "B1", "B2")
	require.NoError(t, err)
	assert.True(t, outer.Price.Equal(price("10")))
	assert.Equal(t,
		"Bundle: Mega Pack\n  Bundle: Starter Pack\n    Product: Widget (Price: $10)",
		outer.Display)
}

func TestCatalogFacade_AttachSuccess(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")

	item, err := models.NewItem("X", "Extra", price("2.50"))
	require.NoError(t, err)

	l, err := f.Attach(ctx, item, "B1")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, l.Children)
	assert.True(t, l.Price.Equal(price("2.5")))

	// Attaching a component does not register it.
	assert.Empty(t, f.Items(ctx))
}

func TestCatalogFacade_AttachUnknownBundleLeavesRegistriesUnchanged(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	f, logs := newFacade(t, pub)
	_, _ = f.AddItem(ctx, "W1", "Widget", price("10"))
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")

	itemsBefore, bundlesBefore, discountsBefore := f.Items(ctx), f.Bundles(ctx), f.Discounts(ctx)
	eventsBefore := len(pub.types())

	_, err := f.AttachItemToBundle(ctx, "W1", "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalogdomain.ErrBundleNotFound))
	assert.True(t, errors.Is(err, catalogdomain.ErrNotFound))
	assert.Contains(t, logs.String(), "bundle does not exist")

	assert.Equal(t, itemsBefore, f.Items(ctx))
	assert.Equal(t, bundlesBefore, f.Bundles(ctx))
	assert.Equal(t, discountsBefore, f.Discounts(ctx))
	assert.Len(t, pub.types(), eventsBefore)
}

func TestCatalogFacade_AttachUnknownItem(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")

	_, err := f.AttachItemToBundle(ctx, "W9", "B1")
	assert.True(t, errors.Is(err, catalogdomain.ErrItemNotFound))

	b, err := f.Bundle(ctx, "B1")
	require.NoError(t, err)
	assert.Empty(t, b.Children)
}

func TestCatalogFacade_AttachBundleRejectsCycles(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddBundle(ctx, "B1", "One")
	_, _ = f.AddBundle(ctx, "B2", "Two")

	_, err := f.AttachBundleToBundle(ctx, "B1", "B1")
	assert.True(t, errors.Is(err, catalogdomain.ErrBundleCycle))

	_, err = f.AttachBundleToBundle(ctx, "B1", "B2")
	require.NoError(t, err)
	_, err = f.AttachBundleToBundle(ctx, "B2", "B1")
	assert.True(t, errors.Is(err, catalogdomain.ErrBundleCycle))

	b1, err := f.Bundle(ctx, "B1")
	require.NoError(t, err)
	assert.Empty(t, b1.Children)
}

func TestCatalogFacade_AddValidation(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, err := f.AddItem(ctx, "W1", "Widget", price("10"))
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate item", func() error { _, err := f.AddItem(ctx, "W1", "Other", price("1")); return err }, catalogdomain.ErrDuplicateCode},
		{"empty code", func() error { _, err := f.AddItem(ctx, "", "Widget", price("1")); return err }, catalogdomain.ErrInvalidItemCode},
		{"code with space", func() error { _, err := f.AddItem(ctx, "W 2", "Widget", price("1")); return err }, catalogdomain.ErrInvalidItemCode},
		{"empty name", func() error { _, err := f.AddItem(ctx, "W2", "", price("1")); return err }, catalogdomain.ErrInvalidItemName},
		{"negative price", func() error { _, err := f.AddItem(ctx, "W2", "Widget", price("-1")); return err }, catalogdomain.ErrInvalidPrice},
		{"bundle bad name", func() error { _, err := f.AddBundle(ctx, "B1", " Pack"); return err }, catalogdomain.ErrInvalidItemName},
		{"discount over 100", func() error { _, err := f.AddDiscountedItem(ctx, "W1", "Sale", price("150")); return err }, catalogdomain.ErrInvalidDiscount},
		{"discount negative", func() error { _, err := f.AddDiscountedItem(ctx, "W1", "Sale", price("-5")); return err }, catalogdomain.ErrInvalidDiscount},
		{"discount unknown item", func() error { _, err := f.AddDiscountedItem(ctx, "W9", "Sale", price("5")); return err }, catalogdomain.ErrItemNotFound},
		{"discount empty offer", func() error { _, err := f.AddDiscountedItem(ctx, "W1", "", price("5")); return err }, catalogdomain.ErrInvalidItemName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}

	assert.Len(t, f.Items(ctx), 1)
	assert.Empty(t, f.Discounts(ctx))
}

func TestCatalogFacade_DuplicateDiscount(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddItem(ctx, "W1", "Widget", price("10"))
	_, err := f.AddDiscountedItem(ctx, "W1", "Sale", price("20"))
	require.NoError(t, err)

	_, err = f.AddDiscountedItem(ctx, "W1", "Flash", price("50"))
	assert.True(t, errors.Is(err, catalogdomain.ErrDuplicateCode))
}

func TestCatalogFacade_ListsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	for _, code := range []string{"C", "A", "B"} {
		_, err := f.AddItem(ctx, code, "Item "+code, price("1"))
		require.NoError(t, err)
	}

	var codes []string
	for _, l := range f.Items(ctx) {
		codes = append(codes, l.Code)
		assert.Equal(t, models.KindItem, l.Kind)
	}
	assert.Equal(t, []string{"C", "A", "B"}, codes)
	assert.Empty(t, f.Bundles(ctx))
}

func TestCatalogFacade_Remove(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddItem(ctx, "W1", "Widget", price("10"))
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")
	_, _ = f.AttachItemToBundle(ctx, "W1", "B1")
	_, _ = f.AddDiscountedItem(ctx, "W1", "Sale", price("20"))

	removed, err := f.RemoveItem(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, "W1", removed.Code)

	_, err = f.Item(ctx, "W1")
	assert.True(t, errors.Is(err, catalogdomain.ErrItemNotFound))

	// Bundles and discounts keep their reference to the removed item.
	b, err := f.Bundle(ctx, "B1")
	require.NoError(t, err)
	assert.True(t, b.Price.Equal(price("10")))
	d, err := f.Discount(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, d.Price.Equal(price("8")))

	_, err = f.RemoveItem(ctx, "W1")
	assert.True(t, errors.Is(err, catalogdomain.ErrItemNotFound))

	_, err = f.RemoveDiscount(ctx, "W1")
	require.NoError(t, err)
	_, err = f.RemoveBundle(ctx, "B1")
	require.NoError(t, err)
	_, err = f.Bundle(ctx, "B1")
	assert.True(t, errors.Is(err, catalogdomain.ErrBundleNotFound))
	_, err = f.Discount(ctx, "W1")
	assert.True(t, errors.Is(err, catalogdomain.ErrDiscountNotFound))
}

func TestCatalogFacade_PublishesListingEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	f, _ := newFacade(t, pub)

	_, _ = f.AddItem(ctx, "W1", "Widget", price("10"))
	_, _ = f.AddBundle(ctx, "B1", "Starter Pack")
	_, _ = f.AddBundle(ctx, "B2", "Mega Pack")
	_, _ = f.AttachBundleToBundle(ctx, "B1", "B2")
	_, _ = f.AttachItemToBundle(ctx, "W1", "B1")
	_, _ = f.AddDiscountedItem(ctx, "W1", "Sale", price("20"))
	_, _ = f.RemoveItem(ctx, "W1")

	assert.Equal(t, []string{
		events.TypeItemRegistered + ":W1",
		events.TypeBundleRegistered + ":B1",
		events.TypeBundleRegistered + ":B2",
		events.TypeBundleChanged + ":B2",
		events.TypeBundleChanged + ":B1",
		events.TypeBundleChanged + ":B2", // B2 encloses B1
		events.TypeDiscountRegistered + ":W1",
		events.TypeListingRemoved + ":W1",
	}, pub.types())

	last := pub.got[len(pub.got)-1].event
	assert.True(t, last.Removed)
	assert.Equal(t, "item", last.Kind)
	assert.Equal(t, f.WorkspaceID(), last.WorkspaceID)

	outer := pub.got[5].event
	assert.Equal(t, "10", outer.Price)
	assert.Equal(t, []string{"B1"}, outer.Children)
}

func TestCatalogFacade_PublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	f, logs := newFacade(t, &recordingPublisher{fail: errors.New("bus down")})

	l, err := f.AddItem(ctx, "W1", "Widget", price("10"))
	require.NoError(t, err)
	assert.Equal(t, "W1", l.Code)
	assert.Contains(t, logs.String(), "publish listing event")

	_, err = f.Item(ctx, "W1")
	assert.NoError(t, err)
}

func TestCatalogFacade_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, nil)
	_, _ = f.AddBundle(ctx, "B1", "Everything")

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := fmt.Sprintf("I%d", i)
			if _, err := f.AddItem(ctx, code, "Item", price("1")); err != nil {
				t.Errorf("add %s: %v", code, err)
				return
			}
			if _, err := f.AttachItemToBundle(ctx, code, "B1"); err != nil {
				t.Errorf("attach %s: %v", code, err)
			}
			_ = f.Bundles(ctx)
		}()
	}
	wg.Wait()

	b, err := f.Bundle(ctx, "B1")
	require.NoError(t, err)
	assert.Len(t, b.Children, n)
	assert.True(t, b.Price.Equal(decimal.NewFromInt(n)))
}
