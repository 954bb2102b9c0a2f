// Package messaging converts catalog listings to and from Watermill messages.
package messaging

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/ghuser/productcatalog/services/catalog/domain/events"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
)

// ListingEventVersion is the current ListingEvent schema version.
const ListingEventVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewListingEvent snapshots l for workspaceID into a publishable event of
// the given type. Removal events carry the last snapshot of the entry.
func NewListingEvent(eventType string, workspaceID uuid.UUID, l models.Listing, at time.Time) events.ListingEvent {
	return events.ListingEvent{
		EventID:     uuid.New(),
		Version:     ListingEventVersion,
		Type:        eventType,
		WorkspaceID: workspaceID,
		Kind:        string(l.Kind),
		Code:        l.Code,
		Name:        l.Name,
		Display:     l.Display,
		Price:       l.Price.String(),
		Children:    l.Children,
		Removed:     eventType == events.TypeListingRemoved,
		OccurredAt:  at.UTC(),
	}
}

// NewListingMessage encodes ev as a Watermill message. The event ID and
// version are copied into metadata so consumers can deduplicate without
// decoding the payload.
func NewListingMessage(ev events.ListingEvent) (*message.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal listing event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", ev.EventID.String())
	msg.Metadata.Set("event_version", strconv.Itoa(ev.Version))
	msg.Metadata.Set("event_type", ev.Type)
	msg.Metadata.Set("workspace_id", ev.WorkspaceID.String())
	return msg, nil
}

// DecodeListingEvent parses a message produced by NewListingMessage.
// Messages from a newer schema version are rejected.
func DecodeListingEvent(msg *message.Message) (events.ListingEvent, error) {
	var ev events.ListingEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return events.ListingEvent{}, fmt.Errorf("unmarshal listing event: %w", err)
	}
	if ev.Version > ListingEventVersion {
		return events.ListingEvent{}, fmt.Errorf("unsupported listing event version %d", ev.Version)
	}
	if ev.WorkspaceID == uuid.Nil || ev.Code == "" {
		return events.ListingEvent{}, fmt.Errorf("listing event %s missing workspace or code", ev.EventID)
	}
	return ev, nil
}
