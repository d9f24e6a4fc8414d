package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisMaxRetries = 5

// stringGetter is satisfied by both the client and a WATCH transaction.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps each transaction as a JSON string and indexes references
// in a sorted set scored by created_at.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	nowFunc func() time.Time
}

// NewRedisStore creates a Redis-backed Store. Keys are namespaced with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		nowFunc: time.Now,
	}
}

func (s *RedisStore) txKey(referenceID string) string {
	return s.prefix + "tx:" + referenceID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "tx:index"
}

// Upsert merges under WATCH so concurrent writers to one reference retry
// instead of losing fields.
func (s *RedisStore) Upsert(ctx context.Context, referenceID string, patch Patch) (*Transaction, error) {
	key := s.txKey(referenceID)
	var merged Transaction

	merge := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			current = newTransaction(referenceID, s.nowFunc())
		case err != nil:
			return err
		}
		patch.apply(&current)

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal transaction: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAddNX(ctx, s.indexKey(), redis.Z{
				Score:  float64(current.CreatedAt.UnixMicro()),
				Member: referenceID,
			})
			return nil
		})
		if err != nil {
			return err
		}
		merged = current
		return nil
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, merge, key)
		if err == nil {
			return &merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("redis upsert %s: %w", referenceID, err)
	}
	return nil, fmt.Errorf("redis upsert %s: too much contention", referenceID)
}

func (s *RedisStore) Get(ctx context.Context, referenceID string) (*Transaction, error) {
	tx, err := s.read(ctx, s.client, s.txKey(referenceID))
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		return []Transaction{}, nil
	}
	refs, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list index: %w", err)
	}
	if len(refs) == 0 {
		return []Transaction{}, nil
	}

	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = s.txKey(ref)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list records: %w", err)
	}

	out := make([]Transaction, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry without a record
			continue
		}
		var tx Transaction
		if err := json.Unmarshal([]byte(raw), &tx); err != nil {
			return nil, fmt.Errorf("unmarshal transaction: %w", err)
		}
		out = append(out, tx)
	}
	return newestFirst(out, limit), nil
}

func (s *RedisStore) read(ctx context.Context, c stringGetter, key string) (Transaction, error) {
	var tx Transaction
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return tx, ErrNotFound
	}
	if err != nil {
		return tx, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return tx, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return tx, nil
}
