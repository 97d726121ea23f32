// Package redisstore persists cache snapshots in Redis so game state
// survives process restarts.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohammed-shakir/geocoin-engine/internal/cache"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/memento"
)

const (
	cellKeyPrefix = "memento:cell:"
	playerKey     = "memento:player"

	readCacheSize = 4096
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

// Store is a Redis-backed memento store with a bounded read-through
// cache of decoded snapshots. Redis stays authoritative: the LRU only
// caches reads, so eviction from it can never lose a memento.
type Store struct {
	rdb   *redis.Client
	ttl   time.Duration
	reads *lru.Cache[model.CellID, memento.Snapshot]
}

var _ memento.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with a ping.
// ttl <= 0 means snapshots never expire.
func New(ctx context.Context, addr string, ttl time.Duration, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	reads, _ := lru.New[model.CellID, memento.Snapshot](readCacheSize)
	return &Store{rdb: rdb, ttl: ttl, reads: reads}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// wireCoin is the serialization shape of one coin inside a snapshot.
// The origin cell and sequence number are recovered from the coin id.
type wireCoin struct {
	CoinID    string  `json:"coinId"`
	OriginLat float64 `json:"originLat"`
	OriginLng float64 `json:"originLng"`
}

func cellKey(cell model.CellID) string {
	return fmt.Sprintf("%s%d:%d", cellKeyPrefix, cell.I, cell.J)
}

func encodeSnapshot(snap memento.Snapshot) ([]byte, error) {
	wire := make([]wireCoin, len(snap.Coins))
	for i, c := range snap.Coins {
		wire[i] = wireCoin{
			CoinID:    c.ID,
			OriginLat: c.Origin.Lat,
			OriginLng: c.Origin.Lng,
		}
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", snap.Cell, err)
	}
	return b, nil
}

func decodeSnapshot(cell model.CellID, raw []byte) (memento.Snapshot, error) {
	var wire []wireCoin
	if err := json.Unmarshal(raw, &wire); err != nil {
		return memento.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", cell, err)
	}
	coins := make([]model.Coin, len(wire))
	for i, w := range wire {
		origin, seq, err := cache.ParseCoinID(w.CoinID)
		if err != nil {
			return memento.Snapshot{}, fmt.Errorf("snapshot %s: %w", cell, err)
		}
		coins[i] = model.Coin{
			ID:     w.CoinID,
			Cell:   origin,
			Seq:    seq,
			Origin: model.Coordinates{Lat: w.OriginLat, Lng: w.OriginLng},
		}
	}
	return memento.Snapshot{Cell: cell, Coins: coins}, nil
}

func (s *Store) Put(ctx context.Context, snap memento.Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, cellKey(snap.Cell), payload, s.expiry()).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", cellKey(snap.Cell), err)
	}
	s.reads.Add(snap.Cell, memento.Capture(snap.Cell, snap.Coins))
	return nil
}

func (s *Store) Get(ctx context.Context, cell model.CellID) (memento.Snapshot, bool, error) {
	if snap, ok := s.reads.Get(cell); ok {
		return memento.Capture(snap.Cell, snap.Coins), true, nil
	}

	raw, err := s.rdb.Get(ctx, cellKey(cell)).Bytes()
	if errors.Is(err, redis.Nil) {
		return memento.Snapshot{}, false, nil
	}
	if err != nil {
		return memento.Snapshot{}, false, fmt.Errorf("redis GET %q: %w", cellKey(cell), err)
	}

	snap, err := decodeSnapshot(cell, raw)
	if err != nil {
		return memento.Snapshot{}, false, err
	}
	s.reads.Add(cell, memento.Capture(snap.Cell, snap.Coins))
	return snap, true, nil
}

func (s *Store) Delete(ctx context.Context, cell model.CellID) error {
	s.reads.Remove(cell)
	if err := s.rdb.Del(ctx, cellKey(cell)).Err(); err != nil {
		return fmt.Errorf("redis DEL %q: %w", cellKey(cell), err)
	}
	return nil
}

// All scans the snapshot keyspace. Used for session restore and
// debugging, not on the hot path.
func (s *Store) All(ctx context.Context) ([]memento.Snapshot, error) {
	var out []memento.Snapshot

	iter := s.rdb.Scan(ctx, 0, cellKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var cell model.CellID
		if _, err := fmt.Sscanf(key, cellKeyPrefix+"%d:%d", &cell.I, &cell.J); err != nil {
			return nil, fmt.Errorf("malformed snapshot key %q: %w", key, err)
		}
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("redis GET %q: %w", key, err)
		}
		snap, err := decodeSnapshot(cell, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN %q: %w", cellKeyPrefix, err)
	}
	return out, nil
}

func (s *Store) PutPlayer(ctx context.Context, p memento.PlayerSnapshot) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode player snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, playerKey, b, s.expiry()).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", playerKey, err)
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context) (memento.PlayerSnapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, playerKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return memento.PlayerSnapshot{}, false, nil
	}
	if err != nil {
		return memento.PlayerSnapshot{}, false, fmt.Errorf("redis GET %q: %w", playerKey, err)
	}
	var p memento.PlayerSnapshot
	if err := json.Unmarshal(raw, &p); err != nil {
		return memento.PlayerSnapshot{}, false, fmt.Errorf("decode player snapshot: %w", err)
	}
	return p, true, nil
}

func (s *Store) expiry() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return s.ttl
}
