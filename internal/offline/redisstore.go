package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the queue in a Redis running next to the terminal. Each
// order is a JSON string; two sorted sets scored by creation time index all
// orders and the pending ones.
type RedisStore struct {
	rdb      redis.Cmdable
	terminal string
}

func NewRedisStore(rdb redis.Cmdable, terminalID string) *RedisStore {
	return &RedisStore{rdb: rdb, terminal: terminalID}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf(redisx.KeyOfflineOrder, s.terminal, id)
}
func (s *RedisStore) pendingKey() string { return fmt.Sprintf(redisx.KeyOfflinePending, s.terminal) }
func (s *RedisStore) allKey() string     { return fmt.Sprintf(redisx.KeyOfflineAll, s.terminal) }

func (s *RedisStore) Put(ctx context.Context, o Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	score := float64(o.CreatedAt.UnixMilli())
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(o.ID), b, 0)
		p.ZAdd(ctx, s.allKey(), redis.Z{Score: score, Member: o.ID})
		if o.Status == StatusPending {
			p.ZAdd(ctx, s.pendingKey(), redis.Z{Score: score, Member: o.ID})
		} else {
			p.ZRem(ctx, s.pendingKey(), o.ID)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (Order, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	var o Order
	if err := json.Unmarshal(b, &o); err != nil {
		return Order{}, false, fmt.Errorf("decode offline order %s: %w", id, err)
	}
	return o, true, nil
}

func (s *RedisStore) List(ctx context.Context, status Status) ([]Order, error) {
	index := s.allKey()
	if status == StatusPending {
		index = s.pendingKey()
	}
	ids, err := s.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Order{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without body
		}
		var o Order
		if err := json.Unmarshal([]byte(str), &o); err != nil {
			return nil, fmt.Errorf("decode offline order %s: %w", ids[i], err)
		}
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}
