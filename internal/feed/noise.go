package feed

import (
	"math/rand"
	"sync"
)

// Noise is the injectable randomness source behind score jitter. Next
// returns a standard-normal sample; the scorer scales it by the configured
// stddev. Production wiring uses GaussianNoise, tests use ZeroNoise so
// scores are exact.
type Noise interface {
	Next() float64
}

// GaussianNoise samples a seeded normal distribution.
type GaussianNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGaussianNoise(seed int64) *GaussianNoise {
	return &GaussianNoise{rng: rand.New(rand.NewSource(seed))}
}

func (g *GaussianNoise) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.NormFloat64()
}

// ZeroNoise disables jitter.
type ZeroNoise struct{}

func (ZeroNoise) Next() float64 { return 0 }

// FixedNoise always returns V, for tests asserting the jitter term.
type FixedNoise struct{ V float64 }

func (f FixedNoise) Next() float64 { return f.V }
