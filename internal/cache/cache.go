// Package cache holds per-cell coin caches and the store that owns the
// active set.
package cache

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

var (
	// ErrEmptyCache reports a collect against a cache with no coins.
	// Expected and recoverable; surfaced to the player, never fatal.
	ErrEmptyCache = errors.New("cache is empty")

	// ErrEmptyInventory reports a deposit with nothing in hand.
	ErrEmptyInventory = errors.New("inventory is empty")

	// ErrUnknownCell reports an operation against a cell with no active
	// cache. Cell keys always come from the registry, so hitting this is
	// a contract violation, not a player-facing condition.
	ErrUnknownCell = errors.New("unknown cell")
)

// Cache is a per-cell container of coins. Insertion order is custody
// order; removal is LIFO.
type Cache struct {
	cell  model.CellID
	coins []model.Coin
}

// New creates an empty cache for a cell.
func New(cell model.CellID) *Cache { return &Cache{cell: cell} }

// Mint creates the initial coin sequence for a freshly spawned cache.
// Coin ids are "<i>:<j>#<seq>"; cell, seq and origin are fixed forever.
func Mint(cell model.CellID, n int, origin model.Coordinates) *Cache {
	c := New(cell)
	for seq := 0; seq < n; seq++ {
		c.coins = append(c.coins, model.Coin{
			ID:     CoinID(cell, seq),
			Cell:   cell,
			Seq:    seq,
			Origin: origin,
		})
	}
	return c
}

// CoinID formats the stable serial of a coin minted at cell with the
// given per-cell sequence number.
func CoinID(cell model.CellID, seq int) string {
	return fmt.Sprintf("%d:%d#%d", cell.I, cell.J, seq)
}

// ParseCoinID recovers the origin cell and sequence number from a coin
// serial produced by CoinID.
func ParseCoinID(id string) (model.CellID, int, error) {
	var cell model.CellID
	var seq int
	if _, err := fmt.Sscanf(id, "%d:%d#%d", &cell.I, &cell.J, &seq); err != nil {
		return model.CellID{}, 0, fmt.Errorf("parse coin id %q: %w", id, err)
	}
	return cell, seq, nil
}

// Restore rebuilds a cache from a snapshot's coin sequence, verbatim.
func Restore(cell model.CellID, coins []model.Coin) *Cache {
	c := New(cell)
	c.coins = append(c.coins, coins...)
	return c
}

func (c *Cache) Cell() model.CellID { return c.cell }

// Points is the cache's derived point value: one point per held coin.
// Recomputed from the coin count, so it can never drift.
func (c *Cache) Points() int { return len(c.coins) }

func (c *Cache) Len() int { return len(c.coins) }

// Coins returns a copy of the coin sequence in custody order.
func (c *Cache) Coins() []model.Coin {
	out := make([]model.Coin, len(c.coins))
	copy(out, c.coins)
	return out
}

// Pop removes and returns the most recently added coin.
func (c *Cache) Pop() (model.Coin, error) {
	if len(c.coins) == 0 {
		return model.Coin{}, ErrEmptyCache
	}
	last := len(c.coins) - 1
	coin := c.coins[last]
	c.coins = c.coins[:last]
	return coin, nil
}

// Push appends a coin to the top of the sequence.
func (c *Cache) Push(coin model.Coin) { c.coins = append(c.coins, coin) }

// Store is the active cache set for one session, keyed by cell.
type Store struct {
	caches map[model.CellID]*Cache
}

func NewStore() *Store {
	return &Store{caches: make(map[model.CellID]*Cache)}
}

func (s *Store) Get(id model.CellID) (*Cache, bool) {
	c, ok := s.caches[id]
	return c, ok
}

func (s *Store) Put(c *Cache) { s.caches[c.cell] = c }

// Remove detaches a cache from the active set and returns it.
func (s *Store) Remove(id model.CellID) (*Cache, bool) {
	c, ok := s.caches[id]
	if ok {
		delete(s.caches, id)
	}
	return c, ok
}

func (s *Store) Len() int { return len(s.caches) }

// Cells lists the active cell keys in row-major order, for
// deterministic iteration.
func (s *Store) Cells() []model.CellID {
	out := make([]model.CellID, 0, len(s.caches))
	for id := range s.caches {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		return out[a].J < out[b].J
	})
	return out
}
