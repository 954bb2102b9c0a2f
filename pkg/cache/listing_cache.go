package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

const (
	// ListingCacheTTL is the time-to-live for cached catalog listings.
	ListingCacheTTL = 24 * time.Hour

	listingCacheKeyPrefix = "catalog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CachedListing is the denormalized read model of one catalog entry stored in Redis.
// Fields are stored as a Redis hash; Price is kept as its exact decimal string.
type CachedListing struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Kind        string    `json:"kind"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Display     string    `json:"display"`
	Price       string    `json:"price"`
	Children    []string  `json:"children,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingCache provides structured read/write operations for listing cache entries.
// Keys are scoped by workspace so two workspaces may reuse the same codes.
// Key format: "catalog:{workspaceID}:{kind}:{code}"
type ListingCache struct {
	client *RedisClient
}

// NewListingCache creates a new ListingCache backed by the given RedisClient.
func NewListingCache(r *RedisClient) *ListingCache {
	return &ListingCache{client: r}
}

// Get retrieves a cached listing.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *ListingCache) Get(ctx context.Context, workspaceID uuid.UUID, kind, code string) (*CachedListing, error) {
	vals, err := c.client.Client().HGetAll(ctx, ListingKey(workspaceID, kind, code)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}
	return decodeListing(vals)
}

// Set writes a listing as a Redis hash with a 24-hour TTL.
// Uses a pipeline to set all fields and the TTL together.
func (c *ListingCache) Set(ctx context.Context, l *CachedListing) error {
	fields, err := encodeListing(l)
	if err != nil {
		return err
	}
	key := ListingKey(l.WorkspaceID, l.Kind, l.Code)
	pipe := c.client.Client().Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields...)
	pipe.Expire(ctx, key, ListingCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached listing. Deleting a missing key is not an error.
func (c *ListingCache) Delete(ctx context.Context, workspaceID uuid.UUID, kind, code string) error {
	if err := c.client.Client().Del(ctx, ListingKey(workspaceID, kind, code)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// ListingKey builds the Redis key: "catalog:{workspaceID}:{kind}:{code}"
func ListingKey(workspaceID uuid.UUID, kind, code string) string {
	return fmt.Sprintf("%s:%s:%s:%s", listingCacheKeyPrefix, workspaceID, kind, code)
}

func encodeListing(l *CachedListing) ([]any, error) {
	children, err := json.Marshal(l.Children)
	if err != nil {
		return nil, fmt.Errorf("cache encode children: %w", err)
	}
	return []any{
		"workspace_id", l.WorkspaceID.String(),
		"kind", l.Kind,
		"code", l.Code,
		"name", l.Name,
		"display", l.Display,
		"price", l.Price,
		"children", string(children),
		"updated_at", l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeListing(vals map[string]string) (*CachedListing, error) {
	wid, err := uuid.Parse(vals["workspace_id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse workspace_id: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, vals["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}
	var children []string
	if raw := vals["children"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &children); err != nil {
			return nil, fmt.Errorf("cache parse children: %w", err)
		}
	}
	return &CachedListing{
		WorkspaceID: wid,
		Kind:        vals["kind"],
		Code:        vals["code"],
		Name:        vals["name"],
		Display:     vals["display"],
		Price:       vals["price"],
		Children:    children,
		UpdatedAt:   updatedAt,
	}, nil
}
