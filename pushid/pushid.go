// Package pushid generates the child keys used to emulate ordered-list
// appends on object nodes.
package pushid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces short identifiers that sort lexicographically in
// generation order and are effectively collision-free within a process.
// Identifiers are ULIDs: a millisecond timestamp prefix plus monotonic
// entropy, so rapid repeated calls within the same time quantum still order
// correctly.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	lastMs  uint64
}

// NewGenerator creates a new push-key generator.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns the next identifier. For any two calls in program order the
// later identifier sorts lexicographically after the earlier one.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(time.Now())
	// Clamp against clock regressions so the timestamp prefix never moves
	// backwards.
	if ms < g.lastMs {
		ms = g.lastMs
	}

	const retry = 3
	var lastErr error
	for i := 0; i < retry; i++ {
		id, err := ulid.New(ms, g.entropy)
		if err == nil {
			g.lastMs = ms
			return id.String()
		}
		lastErr = err
		// Monotonic entropy overflowed within this millisecond. Advance the
		// timestamp and try again.
		ms++
	}

	panic(lastErr)
}
