// Package randsrc is the single source of randomness for the engine. Every
// draw goes through Source so tests can replay exact sequences.
package randsrc

import (
	"math/rand/v2"
	"sync"
	"time"
)

type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

type seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Source seeded with seed. A zero seed draws one from the clock.
func New(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *seeded) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Sequence replays a fixed list of draws, cycling when exhausted. IntN maps
// the next draw onto [0, n) so one list can drive both kinds of call.
type Sequence struct {
	values []float64
	next   int
}

func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0}
	}
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func (s *Sequence) IntN(n int) int {
	if n <= 0 {
		panic("randsrc: IntN called with n <= 0")
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Draws reports how many values have been consumed.
func (s *Sequence) Draws() int {
	return s.next
}

// Pick returns a uniformly chosen element of items. It panics on an empty slice.
func Pick[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}

// Chance reports whether a draw falls below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}
