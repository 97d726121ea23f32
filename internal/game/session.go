// Package game wires the grid registry, cache store, memento store and
// player state into a single session implementing the cache lifecycle
// and the coin transfer protocol.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/geocoin-engine/internal/cache"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/observability"
	"github.com/mohammed-shakir/geocoin-engine/internal/gameevents"
	"github.com/mohammed-shakir/geocoin-engine/internal/grid"
	"github.com/mohammed-shakir/geocoin-engine/internal/luck"
	"github.com/mohammed-shakir/geocoin-engine/internal/memento"
	"github.com/mohammed-shakir/geocoin-engine/internal/player"
	"github.com/mohammed-shakir/geocoin-engine/internal/visits"
)

// Config are the gameplay tuning knobs for one session.
type Config struct {
	TileSize         float64
	SpawnProbability float64
	VisibilityRadius int
	MaxCoins         int
	Seed             string
	Start            model.Coordinates
	HotHalfLife      time.Duration
}

func (c *Config) applyDefaults() {
	if c.TileSize <= 0 {
		c.TileSize = grid.DefaultTileSize
	}
	if c.SpawnProbability <= 0 {
		c.SpawnProbability = 0.1
	}
	if c.VisibilityRadius <= 0 {
		c.VisibilityRadius = 8
	}
	if c.MaxCoins <= 0 {
		c.MaxCoins = 3
	}
	if c.HotHalfLife <= 0 {
		c.HotHalfLife = time.Minute
	}
}

type Option func(*Session)

func WithGenerator(g luck.Generator) Option {
	return func(s *Session) { s.gen = g }
}

func WithMementoStore(m memento.Store) Option {
	return func(s *Session) { s.mem = m }
}

func WithEventSink(sink gameevents.Sink) Option {
	return func(s *Session) { s.events = sink }
}

// Session is one independent game. All state hangs off the session, so
// multiple sessions coexist in one process. Command handlers run to
// completion under one mutex, which is the Go rendition of the
// single-threaded event dispatch the engine assumes: no two transitions
// are ever in flight at once.
type Session struct {
	mu sync.Mutex

	cfg    Config
	log    zerolog.Logger
	reg    *grid.Registry
	store  *cache.Store
	mem    memento.Store
	gen    luck.Generator
	player *player.State
	vis    *visits.Tracker
	events gameevents.Sink

	center model.CellID
}

func NewSession(cfg Config, log zerolog.Logger, opts ...Option) *Session {
	cfg.applyDefaults()
	s := &Session{
		cfg:    cfg,
		log:    log,
		reg:    grid.NewRegistry(cfg.TileSize),
		store:  cache.NewStore(),
		player: player.New(cfg.Start),
		vis:    visits.New(cfg.HotHalfLife),
	}
	for _, f := range opts {
		f(s)
	}
	if s.gen == nil {
		s.gen = luck.NewHashed(cfg.Seed)
	}
	if s.mem == nil {
		s.mem = memento.NewMemStore()
	}
	s.center = s.reg.CellForPoint(cfg.Start.Lat, cfg.Start.Lng).ID()
	return s
}

// ActiveCache is the render-facing view of one active cache.
type ActiveCache struct {
	Cell   model.CellID `json:"cell"`
	Coins  int          `json:"coins"`
	Points int          `json:"points"`
}

func view(c *cache.Cache) ActiveCache {
	return ActiveCache{Cell: c.Cell(), Coins: c.Len(), Points: c.Points()}
}

// MoveTo places the player at a geographic position and recomputes the
// visibility window. Returns the caches now active, in row-major cell
// order.
func (s *Session) MoveTo(ctx context.Context, lat, lng float64) ([]ActiveCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.MoveTo(model.Coordinates{Lat: lat, Lng: lng})
	return s.recompute(ctx)
}

// MoveBy shifts the player by whole cells, the discrete movement path
// (arrow keys in the UI).
func (s *Session) MoveBy(ctx context.Context, di, dj int) ([]ActiveCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.reg.Canonicalize(s.center.I+di, s.center.J+dj)
	s.player.MoveTo(s.reg.Center(target))
	return s.recompute(ctx)
}

// recompute applies the lifecycle state machine for the current player
// position: evict actives that left the window, then restore or spawn
// cells inside it. Idempotent: a second call for the same position is a
// no-op, so position updates may arrive faster than the player reacts.
func (s *Session) recompute(ctx context.Context) ([]ActiveCache, error) {
	start := time.Now()
	defer func() {
		observability.ObserveWindowRecompute(time.Since(start).Seconds())
	}()

	pos := s.player.Position()
	center := s.reg.CellForPoint(pos.Lat, pos.Lng)
	s.center = center.ID()
	s.vis.Inc(center.String())

	// Evict first so no cache is ever active outside the window.
	for _, id := range s.store.Cells() {
		if grid.Chebyshev(id, s.center) <= s.cfg.VisibilityRadius {
			continue
		}
		c, _ := s.store.Remove(id)
		snap := memento.Capture(id, c.Coins())
		if err := s.mem.Put(ctx, snap); err != nil {
			// Put the cache back; losing a memento would break the
			// restore-verbatim guarantee.
			s.store.Put(c)
			return nil, fmt.Errorf("evict %s: %w", id, err)
		}
		observability.IncCacheEvicted()
		s.publish("evict", id, "", len(snap.Coins))
		s.log.Debug().Stringer("cell", id).Int("coins", len(snap.Coins)).Msg("cache evicted")
	}

	// Then admit. Restore wins over the spawn roll: once a cell has
	// confirmed contents (coins or none), those contents are final.
	window := s.reg.CellsNear(center, s.cfg.VisibilityRadius)
	active := make([]ActiveCache, 0, len(window))
	for _, cell := range window {
		id := cell.ID()
		if c, ok := s.store.Get(id); ok {
			active = append(active, view(c))
			continue
		}

		snap, ok, err := s.mem.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", id, err)
		}
		if ok {
			c := cache.Restore(id, snap.Coins)
			s.store.Put(c)
			observability.IncCacheRestored()
			s.publish("restore", id, "", c.Len())
			active = append(active, view(c))
			continue
		}

		key := id.String()
		if s.gen.ValueFor(key) >= s.cfg.SpawnProbability {
			continue // stays unseen; rolls again only on a later re-entry
		}
		n := 1 + int(s.gen.ValueFor(luck.CountKey(key))*float64(s.cfg.MaxCoins))
		c := cache.Mint(id, n, s.reg.Center(cell))
		s.store.Put(c)
		observability.IncCacheSpawned()
		s.publish("spawn", id, "", n)
		s.log.Debug().Stringer("cell", id).Int("coins", n).Msg("cache spawned")
		active = append(active, view(c))
	}
	return active, nil
}

// Collect moves the top coin of a cache into the player inventory.
// Returns ErrEmptyCache, with no state change, when the cache holds
// nothing.
func (s *Session) Collect(cellID model.CellID) (model.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.store.Get(cellID)
	if !ok {
		return model.Coin{}, fmt.Errorf("collect %s: %w", cellID, cache.ErrUnknownCell)
	}
	coin, err := c.Pop()
	if err != nil {
		return model.Coin{}, err
	}
	s.player.Push(coin)
	observability.IncCoinCollected()
	s.publish("collect", cellID, coin.ID, c.Len())
	s.log.Info().Str("coin", coin.ID).Stringer("cell", cellID).Msg("coin collected")
	return coin, nil
}

// Deposit moves the player's most recently collected coin into a cache.
// Returns ErrEmptyInventory, with no state change, when the player
// holds nothing.
func (s *Session) Deposit(cellID model.CellID) (model.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.store.Get(cellID)
	if !ok {
		return model.Coin{}, fmt.Errorf("deposit %s: %w", cellID, cache.ErrUnknownCell)
	}
	coin, ok := s.player.Pop()
	if !ok {
		return model.Coin{}, cache.ErrEmptyInventory
	}
	c.Push(coin)
	observability.IncCoinDeposited()
	s.publish("deposit", cellID, coin.ID, c.Len())
	s.log.Info().Str("coin", coin.ID).Stringer("cell", cellID).Msg("coin deposited")
	return coin, nil
}

// Inventory returns the player's coins in collection order.
func (s *Session) Inventory() []model.Coin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Coins()
}

func (s *Session) Position() model.Coordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Position()
}

func (s *Session) OdometerM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.OdometerM()
}

func (s *Session) Center() model.CellID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

// CacheAt reports the active cache at a cell, if any.
func (s *Session) CacheAt(cellID model.CellID) (ActiveCache, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.store.Get(cellID)
	if !ok {
		return ActiveCache{}, false
	}
	return view(c), true
}

// Active lists the active caches in row-major cell order.
func (s *Session) Active() []ActiveCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.store.Cells()
	out := make([]ActiveCache, 0, len(ids))
	for _, id := range ids {
		c, _ := s.store.Get(id)
		out = append(out, view(c))
	}
	return out
}

// HotCells lists the most-visited window centers by decayed score.
func (s *Session) HotCells(n int) []visits.CellScore {
	return s.vis.Top(n)
}

// SaveState snapshots every active cache and the player into the
// memento store without evicting anything, for cross-session restore.
func (s *Session) SaveState(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.store.Cells() {
		c, _ := s.store.Get(id)
		if err := s.mem.Put(ctx, memento.Capture(id, c.Coins())); err != nil {
			return fmt.Errorf("save cache %s: %w", id, err)
		}
	}
	p := memento.PlayerSnapshot{
		Position: s.player.Position(),
		Coins:    s.player.Coins(),
		Odometer: s.player.OdometerM(),
	}
	if err := s.mem.PutPlayer(ctx, p); err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	s.log.Info().Int("caches", s.store.Len()).Int("coins", len(p.Coins)).Msg("state saved")
	return nil
}

// RestoreState loads the persisted player state, if any, and recomputes
// the window around it. Caches come back through the normal memento
// restore path.
func (s *Session) RestoreState(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.mem.GetPlayer(ctx)
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}
	if ok {
		s.player.Restore(p.Position, p.Coins, p.Odometer)
	}
	if _, err := s.recompute(ctx); err != nil {
		return err
	}
	s.log.Info().Bool("resumed", ok).Stringer("center", s.center).Msg("state restored")
	return nil
}

func (s *Session) publish(kind string, cell model.CellID, coin string, coins int) {
	if s.events == nil {
		return
	}
	s.events.Publish(gameevents.Event{
		Kind:  kind,
		Cell:  cell,
		Coin:  coin,
		Coins: coins,
		TS:    time.Now(),
	})
}
