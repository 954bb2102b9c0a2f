package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicListings is the Watermill topic every catalog mutation is published to.
// A single topic keeps one workspace's events in mutation order for consumers.
const TopicListings = "catalog.listings"

// ListingEvent types, carried in ListingEvent.Type and the "event_type" metadata key.
const (
	TypeItemRegistered     = "catalog.item.registered"
	TypeBundleRegistered   = "catalog.bundle.registered"
	TypeBundleChanged      = "catalog.bundle.changed"
	TypeDiscountRegistered = "catalog.discount.registered"
	TypeListingRemoved     = "catalog.listing.removed"
)

// Types lists every ListingEvent type.
var Types = []string{
	TypeItemRegistered,
	TypeBundleRegistered,
	TypeBundleChanged,
	TypeDiscountRegistered,
	TypeListingRemoved,
}

// ListingEvent carries a snapshot of one catalog entry after a mutation.
// Price is a decimal string to avoid float rounding on the wire.
type ListingEvent struct {
	EventID     uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version     int       `json:"version"`  // Schema version; increment on breaking changes
	Type        string    `json:"type"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Kind        string    `json:"kind"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Display     string    `json:"display"`
	Price       string    `json:"price"`
	Children    []string  `json:"children,omitempty"`
	Removed     bool      `json:"removed"`
	OccurredAt  time.Time `json:"occurred_at"`
}
