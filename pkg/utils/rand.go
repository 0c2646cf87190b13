package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a thread-safe random number generator
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

var (
	defaultMu   sync.RWMutex
	defaultRand = NewRandSource(0)
)

// SetSeed sets the seed for the default random source used by backoff jitter
func SetSeed(seed int64) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRand = NewRandSource(seed)
}

// Float64 returns a random float64 from the default source
func Float64() float64 {
	defaultMu.RLock()
	src := defaultRand
	defaultMu.RUnlock()
	return src.Float64()
}
