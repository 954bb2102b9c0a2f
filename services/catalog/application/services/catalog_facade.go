package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghuser/productcatalog/pkg/logger"
	catalogdomain "github.com/ghuser/productcatalog/services/catalog/domain"
	"github.com/ghuser/productcatalog/services/catalog/domain/events"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
	"github.com/ghuser/productcatalog/services/catalog/domain/repositories"
	domainsvcs "github.com/ghuser/productcatalog/services/catalog/domain/services"
	"github.com/ghuser/productcatalog/services/catalog/infrastructure/messaging"
	"github.com/ghuser/productcatalog/services/catalog/infrastructure/persistence/memory"
)

// Publisher is the slice of events.EventBus the facade needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// CatalogFacade is the single entry point to one workspace's catalog. It owns
// the item, bundle and discount registries and serialises every access to
// them, including reads of bundles, which are mutable.
//
// Every successful mutation publishes a ListingEvent when a Publisher is set.
// Publish failures are logged and never fail the operation.
type CatalogFacade struct {
	mu        sync.RWMutex
	items     repositories.Registry[*models.Item]
	bundles   repositories.Registry[*models.Bundle]
	discounts repositories.Registry[*models.DiscountedItem]

	workspaceID uuid.UUID
	publisher   Publisher
	log         logger.Logger
	obs         *instruments
	now         func() time.Time
}

// NewCatalogFacade returns an empty catalog for workspaceID. publisher may be nil.
func NewCatalogFacade(workspaceID uuid.UUID, publisher Publisher, log logger.Logger) *CatalogFacade {
	return &CatalogFacade{
		items:       memory.NewRegistry[*models.Item](catalogdomain.ErrItemNotFound),
		bundles:     memory.NewRegistry[*models.Bundle](catalogdomain.ErrBundleNotFound),
		discounts:   memory.NewRegistry[*models.DiscountedItem](catalogdomain.ErrDiscountNotFound),
		workspaceID: workspaceID,
		publisher:   publisher,
		log:         log.With("workspace_id", workspaceID.String()),
		obs:         newInstruments(),
		now:         time.Now,
	}
}

// WorkspaceID returns the workspace this facade serves.
func (f *CatalogFacade) WorkspaceID() uuid.UUID {
	return f.workspaceID
}

// AddItem registers a new item.
func (f *CatalogFacade) AddItem(ctx context.Context, code, name string, price decimal.Decimal) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "AddItem", attribute.String("catalog.code", code))
	defer func() { finish(err) }()

	itemCode, err := parseCode(code)
	if err != nil {
		return models.Listing{}, err
	}
	itemName, err := parseName(name)
	if err != nil {
		return models.Listing{}, err
	}
	item, err := models.NewItem(itemCode, itemName, price)
	if err != nil {
		return models.Listing{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.items.Add(item); err != nil {
		return models.Listing{}, fmt.Errorf("add item: %w", err)
	}
	l = models.NewListing(models.KindItem, item)
	f.obs.registered(ctx, string(models.KindItem), 1)
	f.publish(ctx, events.TypeItemRegistered, l)
	f.log.InfoContext(ctx, "item registered", "code", l.Code, "price", l.Price.String())
	return l, nil
}

// AddBundle registers a new, empty bundle.
func (f *CatalogFacade) AddBundle(ctx context.Context, code, name string) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "AddBundle", attribute.String("catalog.code", code))
	defer func() { finish(err) }()

	bundleCode, err := parseCode(code)
	if err != nil {
		return models.Listing{}, err
	}
	bundleName, err := parseName(name)
	if err != nil {
		return models.Listing{}, err
	}
	bundle := models.NewBundle(bundleCode, bundleName)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.bundles.Add(bundle); err != nil {
		return models.Listing{}, fmt.Errorf("add bundle: %w", err)
	}
	l = models.NewListing(models.KindBundle, bundle)
	f.obs.registered(ctx, string(models.KindBundle), 1)
	f.publish(ctx, events.TypeBundleRegistered, l)
	f.log.InfoContext(ctx, "bundle registered", "code", l.Code)
	return l, nil
}

// AddDiscountedItem wraps the registered item itemCode in a special offer and
// registers the result in the discount registry under the item's code.
func (f *CatalogFacade) AddDiscountedItem(ctx context.Context, itemCode, offerName string, rate decimal.Decimal) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "AddDiscountedItem", attribute.String("catalog.code", itemCode))
	defer func() { finish(err) }()

	if _, err := parseName(offerName); err != nil {
		return models.Listing{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	item, err := f.items.Find(itemCode)
	if err != nil {
		return models.Listing{}, fmt.Errorf("add discount: %w", err)
	}
	offer, err := models.NewSpecialOffer(offerName, rate, item)
	if err != nil {
		return models.Listing{}, err
	}
	discounted := models.NewDiscountedItem(offer)
	if err := f.discounts.Add(discounted); err != nil {
		return models.Listing{}, fmt.Errorf("add discount: %w", err)
	}
	l = models.NewListing(models.KindDiscount, discounted)
	f.obs.registered(ctx, string(models.KindDiscount), 1)
	f.publish(ctx, events.TypeDiscountRegistered, l)
	f.log.InfoContext(ctx, "discount registered", "code", l.Code, "rate", rate.String(), "price", l.Price.String())
	return l, nil
}

// Attach appends child to the bundle registered under bundleCode and returns
// the bundle's updated listing. An unknown bundle is logged and reported as
// ErrBundleNotFound; nothing changes in that case.
func (f *CatalogFacade) Attach(ctx context.Context, child models.Component, bundleCode string) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "Attach", attribute.String("catalog.bundle_code", bundleCode))
	defer func() { finish(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachLocked(ctx, child, bundleCode)
}

// AttachItemToBundle attaches the registered item itemCode to bundleCode.
func (f *CatalogFacade) AttachItemToBundle(ctx context.Context, itemCode, bundleCode string) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "AttachItemToBundle",
		attribute.String("catalog.code", itemCode),
		attribute.String("catalog.bundle_code", bundleCode),
	)
	defer func() { finish(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	item, err := f.items.Find(itemCode)
	if err != nil {
		return models.Listing{}, fmt.Errorf("attach item: %w", err)
	}
	return f.attachLocked(ctx, item, bundleCode)
}

// AttachBundleToBundle nests the bundle childCode inside parentCode.
// Fails with ErrBundleCycle when parentCode is childCode or already inside it.
func (f *CatalogFacade) AttachBundleToBundle(ctx context.Context, childCode, parentCode string) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, "AttachBundleToBundle",
		attribute.String("catalog.code", childCode),
		attribute.String("catalog.bundle_code", parentCode),
	)
	defer func() { finish(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	child, err := f.bundles.Find(childCode)
	if err != nil {
		return models.Listing{}, fmt.Errorf("attach bundle: %w", err)
	}
	return f.attachLocked(ctx, child, parentCode)
}

func (f *CatalogFacade) attachLocked(ctx context.Context, child models.Component, bundleCode string) (models.Listing, error) {
	bundle, err := f.bundles.Find(bundleCode)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrBundleNotFound) {
			f.log.WarnContext(ctx, "bundle does not exist", "bundle_code", bundleCode)
		}
		return models.Listing{}, fmt.Errorf("attach to %s: %w", bundleCode, err)
	}
	if err := bundle.Add(child); err != nil {
		return models.Listing{}, err
	}

	l := models.NewListing(models.KindBundle, bundle)
	f.publish(ctx, events.TypeBundleChanged, l)
	// Enclosing bundles render the changed one, so their snapshots move too.
	for _, parent := range f.enclosingLocked(bundle) {
		f.publish(ctx, events.TypeBundleChanged, models.NewListing(models.KindBundle, parent))
	}
	f.log.InfoContext(ctx, "attached to bundle", "bundle_code", bundleCode, "code", child.Code(), "price", l.Price.String())
	return l, nil
}

// enclosingLocked returns every registered bundle that transitively contains target.
func (f *CatalogFacade) enclosingLocked(target *models.Bundle) []*models.Bundle {
	var out []*models.Bundle
	for _, b := range f.bundles.List() {
		if b != target && reaches(b, target) {
			out = append(out, b)
		}
	}
	return out
}

func reaches(from models.Component, target *models.Bundle) bool {
	b, ok := from.(*models.Bundle)
	if !ok {
		return false
	}
	for _, c := range b.Children() {
		if c == models.Component(target) || reaches(c, target) {
			return true
		}
	}
	return false
}

// Item returns the listing of the plain item registered under code.
func (f *CatalogFacade) Item(ctx context.Context, code string) (models.Listing, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	item, err := f.items.Find(code)
	if err != nil {
		return models.Listing{}, err
	}
	return models.NewListing(models.KindItem, item), nil
}

// Bundle returns the listing of the bundle registered under code.
func (f *CatalogFacade) Bundle(ctx context.Context, code string) (models.Listing, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bundle, err := f.bundles.Find(code)
	if err != nil {
		return models.Listing{}, err
	}
	return models.NewListing(models.KindBundle, bundle), nil
}

// Discount returns the listing of the discounted item registered under code.
func (f *CatalogFacade) Discount(ctx context.Context, code string) (models.Listing, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, err := f.discounts.Find(code)
	if err != nil {
		return models.Listing{}, err
	}
	return models.NewListing(models.KindDiscount, d), nil
}

// Items lists all plain items in insertion order.
func (f *CatalogFacade) Items(ctx context.Context) []models.Listing {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return listings(models.KindItem, f.items.List())
}

// Bundles lists all bundles in insertion order.
func (f *CatalogFacade) Bundles(ctx context.Context) []models.Listing {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return listings(models.KindBundle, f.bundles.List())
}

// Discounts lists all discounted items in insertion order.
func (f *CatalogFacade) Discounts(ctx context.Context) []models.Listing {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return listings(models.KindDiscount, f.discounts.List())
}

// RemoveItem unregisters an item. Bundles and discounts that reference it keep it.
func (f *CatalogFacade) RemoveItem(ctx context.Context, code string) (l models.Listing, err error) {
	return removeFrom(ctx, f, "RemoveItem", models.KindItem, f.items, code)
}

// RemoveBundle unregisters a bundle. Bundles that contain it keep it.
func (f *CatalogFacade) RemoveBundle(ctx context.Context, code string) (l models.Listing, err error) {
	return removeFrom(ctx, f, "RemoveBundle", models.KindBundle, f.bundles, code)
}

// RemoveDiscount unregisters a discounted item.
func (f *CatalogFacade) RemoveDiscount(ctx context.Context, code string) (l models.Listing, err error) {
	return removeFrom(ctx, f, "RemoveDiscount", models.KindDiscount, f.discounts, code)
}

func removeFrom[T models.Component](ctx context.Context, f *CatalogFacade, op string, kind models.Kind, reg repositories.Registry[T], code string) (l models.Listing, err error) {
	ctx, finish := f.obs.start(ctx, op, attribute.String("catalog.code", code))
	defer func() { finish(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed, err := reg.Remove(code)
	if err != nil {
		return models.Listing{}, fmt.Errorf("remove %s: %w", kind, err)
	}
	l = models.NewListing(kind, removed)
	f.obs.registered(ctx, string(kind), -1)
	f.publish(ctx, events.TypeListingRemoved, l)
	f.log.InfoContext(ctx, "listing removed", "kind", string(kind), "code", code)
	return l, nil
}

// publish is called with f.mu held so events for one workspace leave in
// mutation order.
func (f *CatalogFacade) publish(ctx context.Context, eventType string, l models.Listing) {
	if f.publisher == nil {
		return
	}
	ev := messaging.NewListingEvent(eventType, f.workspaceID, l, f.now())
	msg, err := messaging.NewListingMessage(ev)
	if err != nil {
		f.log.ErrorContext(ctx, "encode listing event", "event_type", eventType, "code", l.Code, "error", err)
		return
	}
	if err := f.publisher.Publish(ctx, events.TopicListings, msg); err != nil {
		f.log.ErrorContext(ctx, "publish listing event", "event_type", eventType, "code", l.Code, "error", err)
	}
}

func listings[T models.Component](kind models.Kind, in []T) []models.Listing {
	out := make([]models.Listing, 0, len(in))
	for _, c := range in {
		out = append(out, models.NewListing(kind, c))
	}
	return out
}

func parseCode(s string) (models.ItemCode, error) {
	code, err := models.NewItemCode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", catalogdomain.ErrInvalidItemCode, err)
	}
	if err := domainsvcs.ValidateCode(code); err != nil {
		return "", fmt.Errorf("%w: %w", catalogdomain.ErrInvalidItemCode, err)
	}
	return code, nil
}

func parseName(s string) (models.ItemName, error) {
	name, err := models.NewItemName(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", catalogdomain.ErrInvalidItemName, err)
	}
	if err := domainsvcs.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %w", catalogdomain.ErrInvalidItemName, err)
	}
	return name, nil
}
