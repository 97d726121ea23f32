package game

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/geocoin-engine/internal/cache"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/gameevents"
	"github.com/mohammed-shakir/geocoin-engine/internal/memento"
)

// fakeGen returns scripted values per key and a default for everything
// else. A default of 0.99 keeps unscripted cells from spawning.
type fakeGen struct {
	vals map[string]float64
	def  float64
}

func (g *fakeGen) ValueFor(key string) float64 {
	if v, ok := g.vals[key]; ok {
		return v
	}
	return g.def
}

func testConfig() Config {
	return Config{
		TileSize:         1e-4,
		SpawnProbability: 0.1,
		VisibilityRadius: 1,
		MaxCoins:         3,
	}
}

func newTestSession(gen *fakeGen, opts ...Option) *Session {
	opts = append([]Option{WithGenerator(gen)}, opts...)
	return NewSession(testConfig(), zerolog.New(io.Discard), opts...)
}

// moveToCell places the player at the geographic center of a cell.
func moveToCell(t *testing.T, s *Session, i, j int) []ActiveCache {
	t.Helper()
	lat := (float64(i) + 0.5) * 1e-4
	lng := (float64(j) + 0.5) * 1e-4
	active, err := s.MoveTo(context.Background(), lat, lng)
	if err != nil {
		t.Fatalf("MoveTo(%d,%d): %v", i, j, err)
	}
	return active
}

// allCoinIDs gathers every coin currently in custody: active caches
// first, then player inventory.
func allCoinIDs(s *Session) map[string]int {
	out := map[string]int{}
	for _, id := range s.store.Cells() {
		c, _ := s.store.Get(id)
		for _, coin := range c.Coins() {
			out[coin.ID]++
		}
	}
	for _, coin := range s.player.Coins() {
		out[coin.ID]++
	}
	return out
}

func TestSpawn_ConcreteScenario(t *testing.T) {
	// Spawn roll 0.05 < 0.1 spawns; count roll 0.8 scales to 3 coins.
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.05, "0,0-count": 0.8}, def: 0.99}
	s := newTestSession(gen)

	active := moveToCell(t, s, 0, 0)
	if len(active) != 1 {
		t.Fatalf("active=%d want 1", len(active))
	}
	origin := model.CellID{I: 0, J: 0}
	if active[0].Cell != origin || active[0].Coins != 3 || active[0].Points != 3 {
		t.Fatalf("unexpected cache: %+v", active[0])
	}

	c, _ := s.store.Get(origin)
	for i, coin := range c.Coins() {
		if coin.Seq != i {
			t.Fatalf("coin[%d].Seq=%d", i, coin.Seq)
		}
	}

	coin, err := s.Collect(origin)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if coin.Seq != 2 || coin.ID != "0:0#2" {
		t.Fatalf("collected %+v, want highest sequence index", coin)
	}
	if len(s.Inventory()) != 1 {
		t.Fatalf("inventory=%d want 1", len(s.Inventory()))
	}
	got, ok := s.CacheAt(origin)
	if !ok || got.Coins != 2 || got.Points != 2 {
		t.Fatalf("cache after collect: %+v", got)
	}
}

func TestSpawnRoll_FailureLeavesCellUnseen(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.5}, def: 0.99}
	s := newTestSession(gen)

	if active := moveToCell(t, s, 0, 0); len(active) != 0 {
		t.Fatalf("0.5 >= 0.1 must not spawn, got %d caches", len(active))
	}
	// No memento either: the cell stays unseen, not confirmed empty.
	if _, ok, _ := s.mem.Get(context.Background(), model.CellID{I: 0, J: 0}); ok {
		t.Fatalf("failed roll must not write a memento")
	}
}

func TestCollect_LIFOOrder(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.99}, def: 0.99}
	s := newTestSession(gen)
	moveToCell(t, s, 0, 0)
	origin := model.CellID{I: 0, J: 0}

	want := []string{"0:0#2", "0:0#1", "0:0#0"}
	for _, id := range want {
		coin, err := s.Collect(origin)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if coin.ID != id {
			t.Fatalf("collected %q want %q", coin.ID, id)
		}
	}

	if _, err := s.Collect(origin); !errors.Is(err, cache.ErrEmptyCache) {
		t.Fatalf("collect from drained cache err=%v want ErrEmptyCache", err)
	}
	// The failed collect mutated nothing.
	if len(s.Inventory()) != 3 {
		t.Fatalf("inventory=%d want 3", len(s.Inventory()))
	}
}

func TestDeposit_EmptyInventoryIsNoOp(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.0}, def: 0.99}
	s := newTestSession(gen)
	moveToCell(t, s, 0, 0)
	origin := model.CellID{I: 0, J: 0}

	before, _ := s.CacheAt(origin)
	if _, err := s.Deposit(origin); !errors.Is(err, cache.ErrEmptyInventory) {
		t.Fatalf("err=%v want ErrEmptyInventory", err)
	}
	after, _ := s.CacheAt(origin)
	if before != after {
		t.Fatalf("failed deposit mutated the cache: %+v -> %+v", before, after)
	}
}

func TestTransfer_UnknownCell(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{}, def: 0.99}
	s := newTestSession(gen)
	moveToCell(t, s, 0, 0)

	nowhere := model.CellID{I: 500, J: 500}
	if _, err := s.Collect(nowhere); !errors.Is(err, cache.ErrUnknownCell) {
		t.Fatalf("Collect err=%v want ErrUnknownCell", err)
	}
	if _, err := s.Deposit(nowhere); !errors.Is(err, cache.ErrUnknownCell) {
		t.Fatalf("Deposit err=%v want ErrUnknownCell", err)
	}
}

func TestEvictAndRestore_Verbatim(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.05, "0,0-count": 0.8}, def: 0.99}
	s := newTestSession(gen)
	origin := model.CellID{I: 0, J: 0}

	moveToCell(t, s, 0, 0)
	c, _ := s.store.Get(origin)
	wantCoins := c.Coins()

	// Chebyshev((0,0),(3,0)) = 3 > radius 1: origin gets evicted.
	moveToCell(t, s, 3, 0)
	if _, ok := s.store.Get(origin); ok {
		t.Fatalf("cache still active outside the window")
	}
	snap, ok, _ := s.mem.Get(context.Background(), origin)
	if !ok || len(snap.Coins) != 3 {
		t.Fatalf("memento missing or wrong: ok=%v coins=%d", ok, len(snap.Coins))
	}

	// Sabotage the spawn roll. If re-entry rolled again, nothing would
	// spawn; restoration must ignore the roll entirely.
	gen.vals["0,0"] = 0.99

	moveToCell(t, s, 0, 0)
	c, ok = s.store.Get(origin)
	if !ok {
		t.Fatalf("cache not restored on re-entry")
	}
	got := c.Coins()
	if len(got) != len(wantCoins) {
		t.Fatalf("restored %d coins want %d", len(got), len(wantCoins))
	}
	for i := range wantCoins {
		if got[i] != wantCoins[i] {
			t.Fatalf("restored[%d]=%+v want %+v (identity, not re-roll)", i, got[i], wantCoins[i])
		}
	}
}

func TestEmptiedCache_NeverRemints(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.0}, def: 0.99}
	s := newTestSession(gen)
	origin := model.CellID{I: 0, J: 0}

	moveToCell(t, s, 0, 0)
	if _, err := s.Collect(origin); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	// Evict the now-empty cache, then re-enter with the friendliest
	// possible rolls. Confirmed-empty must stay empty.
	moveToCell(t, s, 3, 0)
	moveToCell(t, s, 0, 0)

	c, ok := s.store.Get(origin)
	if !ok {
		t.Fatalf("empty cache must still restore as an active (empty) cache")
	}
	if c.Len() != 0 {
		t.Fatalf("vacated cache re-minted %d coins", c.Len())
	}
	if _, err := s.Collect(origin); !errors.Is(err, cache.ErrEmptyCache) {
		t.Fatalf("err=%v want ErrEmptyCache", err)
	}
}

func TestConservation_AcrossTransfersAndEviction(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{
		"0,0": 0.0, "0,0-count": 0.8, // 3 coins
		"3,0": 0.0, "3,0-count": 0.0, // 1 coin
	}, def: 0.99}
	s := newTestSession(gen)
	origin := model.CellID{I: 0, J: 0}
	other := model.CellID{I: 3, J: 0}

	moveToCell(t, s, 0, 0)
	s.mustCollect(t, origin)
	s.mustCollect(t, origin)

	check := func(stage string, wantTotal int) {
		t.Helper()
		ids := allCoinIDs(s)
		if len(ids) != wantTotal {
			t.Fatalf("%s: %d coins in custody, want %d", stage, len(ids), wantTotal)
		}
		for id, n := range ids {
			if n != 1 {
				t.Fatalf("%s: coin %s held %d times", stage, id, n)
			}
		}
	}
	check("after collects", 3)

	// Move so origin evicts and the other cache spawns; the two coins
	// in hand travel with the player.
	moveToCell(t, s, 3, 0)
	check("after eviction", 3) // 1 spawned at 3,0 + 2 in inventory; origin's coin is in its memento

	coin, err := s.Deposit(other)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	// Origin metadata is untouched by custody changes.
	if coin.Cell != origin || coin.ID != "0:0#1" {
		t.Fatalf("deposited coin lost its origin: %+v", coin)
	}
	check("after deposit", 3)

	c, _ := s.store.Get(other)
	if c.Len() != 2 {
		t.Fatalf("other cache holds %d coins want 2", c.Len())
	}
	// LIFO on the receiving side: the deposited coin comes out first.
	got, _ := s.Collect(other)
	if got.ID != "0:0#1" {
		t.Fatalf("collected %q want the foreign coin back", got.ID)
	}
	check("after re-collect", 3)
}

func (s *Session) mustCollect(t *testing.T, id model.CellID) model.Coin {
	t.Helper()
	coin, err := s.Collect(id)
	if err != nil {
		t.Fatalf("Collect(%s): %v", id, err)
	}
	return coin
}

func TestRecompute_Idempotent(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.8}, def: 0.99}
	s := newTestSession(gen)
	origin := model.CellID{I: 0, J: 0}

	first := moveToCell(t, s, 0, 0)
	second := moveToCell(t, s, 0, 0)
	if len(first) != len(second) {
		t.Fatalf("repeat recompute changed active set: %d vs %d", len(first), len(second))
	}
	c, _ := s.store.Get(origin)
	if c.Len() != 3 {
		t.Fatalf("repeat recompute minted extra coins: %d", c.Len())
	}
}

func TestMoveBy_ShiftsWholeCells(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{}, def: 0.99}
	s := newTestSession(gen)
	moveToCell(t, s, 0, 0)

	if _, err := s.MoveBy(context.Background(), 2, -1); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}
	if got := s.Center(); got != (model.CellID{I: 2, J: -1}) {
		t.Fatalf("center=%v want (2,-1)", got)
	}
	if s.OdometerM() == 0 {
		t.Fatalf("discrete movement must still advance the odometer")
	}
}

func TestSaveRestoreState_AcrossSessions(t *testing.T) {
	mem := memento.NewMemStore()
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.8}, def: 0.99}
	ctx := context.Background()

	s1 := newTestSession(gen, WithMementoStore(mem))
	moveToCell(t, s1, 0, 0)
	collected := s1.mustCollect(t, model.CellID{I: 0, J: 0})
	if err := s1.SaveState(ctx); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	// A fresh session over the same store resumes where s1 left off,
	// even with spawn rolls sabotaged.
	gen2 := &fakeGen{vals: map[string]float64{}, def: 0.99}
	s2 := newTestSession(gen2, WithMementoStore(mem))
	if err := s2.RestoreState(ctx); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	if got := s2.Inventory(); len(got) != 1 || got[0] != collected {
		t.Fatalf("inventory not restored: %+v", got)
	}
	if s2.Position() != s1.Position() {
		t.Fatalf("position not restored: %v vs %v", s2.Position(), s1.Position())
	}
	c, ok := s2.store.Get(model.CellID{I: 0, J: 0})
	if !ok || c.Len() != 2 {
		t.Fatalf("cache not restored verbatim: ok=%v len=%d", ok, c.Len())
	}
}

type chanSource struct {
	fixes chan model.Coordinates
}

func (c *chanSource) Next(ctx context.Context) (model.Coordinates, error) {
	select {
	case fix := <-c.fixes:
		return fix, nil
	case <-ctx.Done():
		return model.Coordinates{}, ctx.Err()
	}
}

func TestTracker_StopIsDeterministic(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{}, def: 0.99}
	s := newTestSession(gen)
	src := &chanSource{fixes: make(chan model.Coordinates, 8)}

	tr := StartTracking(s, src, zerolog.New(io.Discard))

	src.fixes <- model.Coordinates{Lat: 0.00015, Lng: 0.00015}
	waitFor(t, func() bool { return s.Center() == (model.CellID{I: 1, J: 1}) })

	tr.Stop()
	pos := s.Position()

	// Fixes delivered after Stop must never reach the session.
	src.fixes <- model.Coordinates{Lat: 1, Lng: 1}
	time.Sleep(20 * time.Millisecond)
	if s.Position() != pos {
		t.Fatalf("position changed after Stop: %v -> %v", pos, s.Position())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestEventSink_SeesLifecycle(t *testing.T) {
	gen := &fakeGen{vals: map[string]float64{"0,0": 0.0, "0,0-count": 0.0}, def: 0.99}
	sink := &captureSink{}
	s := newTestSession(gen, WithEventSink(sink))

	moveToCell(t, s, 0, 0)
	s.mustCollect(t, model.CellID{I: 0, J: 0})
	moveToCell(t, s, 3, 0)
	moveToCell(t, s, 0, 0)

	want := []string{"spawn", "collect", "evict", "restore"}
	if len(sink.kinds) != len(want) {
		t.Fatalf("events=%v want %v", sink.kinds, want)
	}
	for i := range want {
		if sink.kinds[i] != want[i] {
			t.Fatalf("events=%v want %v", sink.kinds, want)
		}
	}
}

type captureSink struct {
	kinds []string
}

func (c *captureSink) Publish(ev gameevents.Event) { c.kinds = append(c.kinds, ev.Kind) }
