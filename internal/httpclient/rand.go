package httpclient

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness used to shape requests. Implementations passed to
// an Issuer must be safe for concurrent use.
type Rand interface {
	IntN(n int) int
	Int64N(n int64) int64
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand. A zero seed picks a random one.
func NewRand(seed int64) Rand {
	s := uint64(seed)
	if seed == 0 {
		s = rand.Uint64()
	}
	return &lockedRand{r: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int64N(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
