// Package memento snapshots cache contents at eviction so that cells
// re-entering the visibility window restore exact state instead of
// re-rolling the spawn probability.
package memento

import (
	"context"
	"sort"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

// Snapshot is an immutable copy of a cache's coin sequence at the
// moment of eviction. An empty Coins slice is meaningful: it records
// that the cell was confirmed empty and must never mint coins again.
type Snapshot struct {
	Cell  model.CellID `json:"cell"`
	Coins []model.Coin `json:"coins"`
}

// Capture deep-copies a coin sequence into a snapshot.
func Capture(cell model.CellID, coins []model.Coin) Snapshot {
	cp := make([]model.Coin, len(coins))
	copy(cp, coins)
	return Snapshot{Cell: cell, Coins: cp}
}

// PlayerSnapshot carries player state across sessions.
type PlayerSnapshot struct {
	Position model.Coordinates `json:"position"`
	Coins    []model.Coin      `json:"coins"`
	Odometer float64           `json:"odometerM"`
}

// Store persists snapshots keyed by cell. Put overwrites, Get returns
// the latest, and a stored empty snapshot is distinct from a missing
// one — implementations must preserve that distinction.
type Store interface {
	Put(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, cell model.CellID) (Snapshot, bool, error)
	Delete(ctx context.Context, cell model.CellID) error
	All(ctx context.Context) ([]Snapshot, error)

	PutPlayer(ctx context.Context, p PlayerSnapshot) error
	GetPlayer(ctx context.Context) (PlayerSnapshot, bool, error)
}

// MemStore is the in-process Store used for single-session play and
// tests.
type MemStore struct {
	snaps  map[model.CellID]Snapshot
	player *PlayerSnapshot
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{snaps: make(map[model.CellID]Snapshot)}
}

func (m *MemStore) Put(_ context.Context, s Snapshot) error {
	// Re-copy on the way in so later cache mutation can't reach the
	// stored snapshot through a shared slice.
	m.snaps[s.Cell] = Capture(s.Cell, s.Coins)
	return nil
}

func (m *MemStore) Get(_ context.Context, cell model.CellID) (Snapshot, bool, error) {
	s, ok := m.snaps[cell]
	if !ok {
		return Snapshot{}, false, nil
	}
	return Capture(s.Cell, s.Coins), true, nil
}

func (m *MemStore) Delete(_ context.Context, cell model.CellID) error {
	delete(m.snaps, cell)
	return nil
}

func (m *MemStore) All(_ context.Context) ([]Snapshot, error) {
	out := make([]Snapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, Capture(s.Cell, s.Coins))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Cell.I != out[b].Cell.I {
			return out[a].Cell.I < out[b].Cell.I
		}
		return out[a].Cell.J < out[b].Cell.J
	})
	return out, nil
}

func (m *MemStore) PutPlayer(_ context.Context, p PlayerSnapshot) error {
	cp := p
	cp.Coins = append([]model.Coin(nil), p.Coins...)
	m.player = &cp
	return nil
}

func (m *MemStore) GetPlayer(_ context.Context) (PlayerSnapshot, bool, error) {
	if m.player == nil {
		return PlayerSnapshot{}, false, nil
	}
	cp := *m.player
	cp.Coins = append([]model.Coin(nil), m.player.Coins...)
	return cp, true, nil
}

func (m *MemStore) Len() int { return len(m.snaps) }
