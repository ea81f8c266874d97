package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisTxnAttempts = 16

// Redis implements Store on a Redis instance. Transactions use WATCH-based
// optimistic locking: the commit pipeline only applies when no other client
// wrote the key between the read and the EXEC.
type Redis struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewRedis creates a Redis-backed store. All keys are namespaced under
// the given prefix.
func NewRedis(rdb *redis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "mainmuse:"
	}
	return &Redis{rdb: rdb, keyPrefix: keyPrefix}
}

func (s *Redis) key(p Path) string {
	return s.keyPrefix + p.String()
}

// Get performs a point read.
func (s *Redis) Get(ctx context.Context, p Path) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.key(p)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return value, nil
}

// Set unconditionally overwrites the record.
func (s *Redis) Set(ctx context.Context, p Path, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(p), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Transact runs fn under WATCH-based optimistic locking.
func (s *Redis) Transact(ctx context.Context, p Path, fn TxnFunc) (bool, []byte, error) {
	key := s.key(p)
	var final []byte

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		final = next
		return nil
	}

	for attempt := 0; attempt < redisTxnAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrAbort) {
			return false, nil, nil
		}
		if err != nil {
			return false, nil, err
		}
		return true, final, nil
	}

	return false, nil, ErrTxnFailed
}

// Children returns the immediate children of a node.
func (s *Redis) Children(ctx context.Context, p Path) (map[string][]byte, error) {
	prefix := s.key(p) + "/"
	children := make(map[string][]byte)

	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		rest := key[len(prefix):]
		if strings.Contains(rest, "/") {
			continue
		}
		value, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		children[rest] = value
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return children, nil
}
