// Package visits tracks how often the player's window has centered on
// each cell, with exponential decay so old activity fades out.
package visits

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const numShards = 16

type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

func (t *Tracker) Inc(cell string) {
	if cell == "" {
		return
	}
	s := t.pick(cell)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.m[cell]
	if c == nil {
		s.m[cell] = &counter{score: 1, last: n}
		return
	}
	dt := n.Sub(c.last).Seconds()
	c.score = decay(c.score, dt, t.HalfLife.Seconds()) + 1.0
	c.last = n
}

func (t *Tracker) Score(cell string) float64 {
	if cell == "" {
		return 0
	}
	s := t.pick(cell)
	n := t.now()

	s.mu.RLock()
	c := s.m[cell]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	dt := n.Sub(last).Seconds()
	return decay(score, dt, t.HalfLife.Seconds())
}

// CellScore is one entry of a Top listing.
type CellScore struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

// Top returns the n most-visited cells by decayed score, descending.
func (t *Tracker) Top(n int) []CellScore {
	if n <= 0 {
		return nil
	}
	now := t.now()
	half := t.HalfLife.Seconds()

	var all []CellScore
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for cell, c := range s.m {
			dt := now.Sub(c.last).Seconds()
			all = append(all, CellScore{Cell: cell, Score: decay(c.score, dt, half)})
		}
		s.mu.RUnlock()
	}

	sort.Slice(all, func(a, b int) bool {
		if all[a].Score != all[b].Score {
			return all[a].Score > all[b].Score
		}
		return all[a].Cell < all[b].Cell
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	lambda := math.Ln2 / halfLife
	return score * math.Exp(-lambda*dt)
}

func (t *Tracker) pick(cell string) *shard {
	h := xxhash.Sum64String(cell)
	return &t.shards[h&(numShards-1)]
}
