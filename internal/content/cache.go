package content

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const countsKey = "content:video_counts"

// CountCache remembers subtopic video counts in a Redis hash across restarts.
type CountCache struct {
	client *redis.Client
}

// NewCountCache creates a count cache on the given client.
func NewCountCache(client *redis.Client) *CountCache {
	return &CountCache{client: client}
}

// Save stores the count for one subtopic.
func (c *CountCache) Save(ctx context.Context, subtopicID string, count int) error {
	if err := c.client.HSet(ctx, countsKey, subtopicID, count).Err(); err != nil {
		return fmt.Errorf("caching video count: %w", err)
	}
	return nil
}

// Load returns every cached count. Malformed entries are ignored.
func (c *CountCache) Load(ctx context.Context) (map[string]int, error) {
	raw, err := c.client.HGetAll(ctx, countsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("loading video counts: %w", err)
	}
	counts := make(map[string]int, len(raw))
	for id, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		counts[id] = n
	}
	return counts, nil
}
