// Package redis stores registry entities in Redis hashes, one hash per entity kind.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewClient opens a Redis client and verifies it with PING.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// EntityStore implements storage.EntityStore on Redis.
// Each kind is a hash at "<prefix>:<kind>" mapping id to encoded entity.
type EntityStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewEntityStore creates a new EntityStore. An empty prefix defaults to "entities".
func NewEntityStore(client goredis.UniversalClient, prefix string) *EntityStore {
	if prefix == "" {
		prefix = "entities"
	}
	return &EntityStore{client: client, prefix: prefix}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

func (s *EntityStore) key(kind domain.Kind) string {
	return s.prefix + ":" + string(kind)
}

// Get returns the encoded entity. Returns ErrNotFound if not exists.
func (s *EntityStore) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key(kind), id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("hget %s/%s: %w", kind, id, err)
	}
	return data, nil
}

// Commit writes all records in one MULTI/EXEC transaction.
func (s *EntityStore) Commit(ctx context.Context, records []storage.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r.Kind == "" || r.ID == "" || len(r.Data) == 0 {
			return storage.ErrInvalidInput
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, r := range records {
			pipe.HSet(ctx, s.key(r.Kind), r.ID, r.Data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit %d records: %w", len(records), err)
	}
	return nil
}

// List returns every record of a kind, ordered by id ASC.
func (s *EntityStore) List(ctx context.Context, kind domain.Kind) ([]storage.Record, error) {
	all, err := s.client.HGetAll(ctx, s.key(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", kind, err)
	}

	records := make([]storage.Record, 0, len(all))
	for id, data := range all {
		records = append(records, storage.Record{Kind: kind, ID: id, Data: []byte(data)})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}
