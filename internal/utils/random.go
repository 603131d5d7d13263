package utils

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource is the randomness used by analysis and quest generation.
// Tests inject a seeded source for reproducible output.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

// lockedSource guards a *rand.Rand so it can be shared across goroutines
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a goroutine-safe deterministic source
func NewSeededSource(seed uint64) RandomSource {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSource returns a source seeded from the clock.
// A non-zero seed makes it deterministic.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewSeededSource(seed)
}

func (s *lockedSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// FixedSource always returns the same values. Useful in tests.
type FixedSource struct {
	Int   int
	Float float64
}

func (f FixedSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	if f.Int >= n {
		return n - 1
	}
	if f.Int < 0 {
		return 0
	}
	return f.Int
}

func (f FixedSource) Float64() float64 {
	return f.Float
}
