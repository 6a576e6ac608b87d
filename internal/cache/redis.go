package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/config"
	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds the slot projection of a court per date for display.
// It is never consulted when deciding whether a booking may be created.
type RedisCache struct {
	client   redis.Cmdable
	slotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, slotsTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), slotsTTL)
}

func NewRedisCacheWithClient(client redis.Cmdable, slotsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, slotsTTL: slotsTTL}
}

// GetSlots returns ok=false on a cache miss.
func (c *RedisCache) GetSlots(ctx context.Context, courtID int64, date time.Time) ([]domain.CourtTimeSlot, bool, error) {
	data, err := c.client.Get(ctx, slotsKey(courtID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var slots []domain.CourtTimeSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false, err
	}
	return slots, true, nil
}

func (c *RedisCache) SetSlots(ctx context.Context, courtID int64, date time.Time, slots []domain.CourtTimeSlot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotsKey(courtID, date), payload, c.slotsTTL).Err()
}

func (c *RedisCache) InvalidateSlots(ctx context.Context, courtID int64, date time.Time) error {
	return c.client.Del(ctx, slotsKey(courtID, date)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func slotsKey(courtID int64, date time.Time) string {
	return fmt.Sprintf("cache:slots:court:%d:%s", courtID, date.Format(domain.DateLayout))
}
