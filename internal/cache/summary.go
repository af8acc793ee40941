package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"pawmeds/internal/model"
)

const (
	// summaryTTL keeps cached summaries short-lived: upcoming doses change
	// every few minutes, so staleness past one scheduler tick is useless.
	summaryTTL = 60 * time.Second
)

// SummaryCache caches per-user notification summaries.
type SummaryCache interface {
	// Get returns the cached summary for a user, or (nil, nil) on a miss.
	Get(ctx context.Context, userID int64) (*model.NotificationSummary, error)

	// Set stores the summary for a user with the standard TTL.
	Set(ctx context.Context, userID int64, summary *model.NotificationSummary) error

	// Invalidate drops the cached summary, e.g. after a dose is recorded.
	Invalidate(ctx context.Context, userID int64) error
}

// RedisSummaryCache implements SummaryCache using plain Redis keys.
type RedisSummaryCache struct {
	client *redis.Client
}

// NewSummaryCache creates a SummaryCache backed by Redis.
func NewSummaryCache(client *redis.Client) *RedisSummaryCache {
	return &RedisSummaryCache{client: client}
}

func summaryKey(userID int64) string {
	return fmt.Sprintf("summary:user:%d", userID)
}

func (c *RedisSummaryCache) Get(ctx context.Context, userID int64) (*model.NotificationSummary, error) {
	data, err := c.client.Get(ctx, summaryKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var summary model.NotificationSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		// Corrupt entry: treat as a miss so the caller recomputes.
		log.Printf("[Cache] Dropping corrupt summary for user=%d: %v", userID, err)
		_ = c.client.Del(ctx, summaryKey(userID)).Err()
		return nil, nil
	}
	return &summary, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, userID int64, summary *model.NotificationSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(userID), data, summaryTTL).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, summaryKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}
