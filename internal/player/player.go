// Package player tracks the player's position, coin inventory and
// odometer.
package player

import (
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

// State is the player's mutable game state. It is mutated only through
// the session's movement commands and the coin transfer protocol.
type State struct {
	pos      model.Coordinates
	placed   bool
	coins    []model.Coin
	odometer float64 // meters travelled since session start
}

func New(start model.Coordinates) *State {
	return &State{pos: start, placed: true}
}

// MoveTo updates the position and advances the odometer by the
// great-circle distance from the previous fix.
func (s *State) MoveTo(to model.Coordinates) {
	if s.placed {
		from := h3.LatLng{Lat: s.pos.Lat, Lng: s.pos.Lng}
		dest := h3.LatLng{Lat: to.Lat, Lng: to.Lng}
		s.odometer += h3.GreatCircleDistanceM(from, dest)
	}
	s.pos = to
	s.placed = true
}

func (s *State) Position() model.Coordinates { return s.pos }

// OdometerM is the cumulative distance travelled, in meters.
func (s *State) OdometerM() float64 { return s.odometer }

// Push appends a collected coin. Collection order is LIFO custody
// order: the last coin collected is the first deposited.
func (s *State) Push(c model.Coin) { s.coins = append(s.coins, c) }

// Pop removes and returns the most recently collected coin.
func (s *State) Pop() (model.Coin, bool) {
	if len(s.coins) == 0 {
		return model.Coin{}, false
	}
	last := len(s.coins) - 1
	c := s.coins[last]
	s.coins = s.coins[:last]
	return c, true
}

// Coins returns a copy of the inventory in collection order.
func (s *State) Coins() []model.Coin {
	out := make([]model.Coin, len(s.coins))
	copy(out, s.coins)
	return out
}

func (s *State) Len() int { return len(s.coins) }

// Restore replaces the player state from a persisted snapshot.
func (s *State) Restore(pos model.Coordinates, coins []model.Coin, odometerM float64) {
	s.pos = pos
	s.placed = true
	s.coins = append([]model.Coin(nil), coins...)
	s.odometer = odometerM
}
