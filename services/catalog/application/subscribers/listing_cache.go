// Package subscribers consumes catalog events outside the request path.
package subscribers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ghuser/productcatalog/pkg/cache"
	"github.com/ghuser/productcatalog/pkg/logger"
	"github.com/ghuser/productcatalog/pkg/telemetry"
	"github.com/ghuser/productcatalog/services/catalog/domain/events"
	"github.com/ghuser/productcatalog/services/catalog/infrastructure/messaging"
)

// ListingStore is the read model the cache subscriber maintains.
// Satisfied by *cache.ListingCache. Get returns redis.Nil for a missing entry.
type ListingStore interface {
	Get(ctx context.Context, workspaceID uuid.UUID, kind, code string) (*cache.CachedListing, error)
	Set(ctx context.Context, l *cache.CachedListing) error
	Delete(ctx context.Context, workspaceID uuid.UUID, kind, code string) error
}

// Subscriber is the slice of events.EventBus used to register handlers.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error)
}

// RegisterListingCache subscribes the cache warmer to the catalog topic.
// Subscriber errors are drained and logged in the background.
func RegisterListingCache(ctx context.Context, bus Subscriber, store ListingStore, log logger.Logger) error {
	errCh, err := bus.Subscribe(ctx, events.TopicListings, HandleListingEvent(store, log))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.TopicListings, err)
	}

	// Drain subscriber errors in background so the channel never blocks.
	// These are messages that failed every retry, so they go to Sentry too.
	go func() {
		for err := range errCh {
			log.ErrorContext(ctx, "subscriber error",
				"topic", events.TopicListings,
				"error", err,
			)
			telemetry.CaptureError(ctx, err)
		}
	}()

	log.Info("event subscribers registered", "topics", []string{events.TopicListings})
	return nil
}

// HandleListingEvent returns a handler that mirrors ListingEvents into store.
// Handlers must be idempotent; EventBus retries up to 3x on failure.
// Cache writes are best-effort: a failed write is logged, not retried.
//
// An entry already written from a later event is left alone, so a redelivered
// snapshot cannot roll a listing back to an older price.
func HandleListingEvent(store ListingStore, log logger.Logger) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := messaging.DecodeListingEvent(msg)
		if err != nil {
			return err
		}

		if evt.Removed {
			if err := store.Delete(ctx, evt.WorkspaceID, evt.Kind, evt.Code); err != nil {
				log.WarnContext(ctx, "cache evict failed", "code", evt.Code, "kind", evt.Kind, "error", err)
				return nil
			}
			log.DebugContext(ctx, "cache evicted",
				"workspace_id", evt.WorkspaceID, "kind", evt.Kind, "code", evt.Code)
			return nil
		}

		if stale, err := olderThanCached(ctx, store, evt); err != nil {
			log.WarnContext(ctx, "cache read failed", "code", evt.Code, "kind", evt.Kind, "error", err)
		} else if stale {
			log.DebugContext(ctx, "cache already newer, event skipped",
				"workspace_id", evt.WorkspaceID, "kind", evt.Kind, "code", evt.Code, "event_id", evt.EventID)
			return nil
		}

		if err := store.Set(ctx, &cache.CachedListing{
			WorkspaceID: evt.WorkspaceID,
			Kind:        evt.Kind,
			Code:        evt.Code,
			Name:        evt.Name,
			Display:     evt.Display,
			Price:       evt.Price,
			Children:    evt.Children,
			UpdatedAt:   evt.OccurredAt,
		}); err != nil {
			log.WarnContext(ctx, "cache warm failed", "code", evt.Code, "kind", evt.Kind, "error", err)
			return nil
		}
		log.DebugContext(ctx, "cache warmed",
			"workspace_id", evt.WorkspaceID, "kind", evt.Kind, "code", evt.Code)
		return nil
	}
}

// olderThanCached reports whether the cached entry for evt was written from a
// later event.
func olderThanCached(ctx context.Context, store ListingStore, evt events.ListingEvent) (bool, error) {
	cached, err := store.Get(ctx, evt.WorkspaceID, evt.Kind, evt.Code)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cached.UpdatedAt.After(evt.OccurredAt), nil
}
