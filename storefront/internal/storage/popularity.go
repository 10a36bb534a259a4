package storage

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const popularityKey = "popularity:dishes"

// RedisPopularity counts how often each dish was ordered in a sorted set.
type RedisPopularity struct {
	Client *redis.Client
}

func NewRedisPopularity(client *redis.Client) *RedisPopularity {
	return &RedisPopularity{Client: client}
}

func (p *RedisPopularity) RecordOrder(ctx context.Context, dishIDs []int) error {
	if len(dishIDs) == 0 {
		return nil
	}
	pipe := p.Client.TxPipeline()
	for _, id := range dishIDs {
		pipe.ZIncrBy(ctx, popularityKey, 1, strconv.Itoa(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPopularity) TopDishes(ctx context.Context, limit int) ([]int, error) {
	if limit <= 0 {
		return []int{}, nil
	}
	members, err := p.Client.ZRevRange(ctx, popularityKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
