// File: internal/agent/replay.go
package agent

import (
	"math/rand"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// Experience is one (s, a, r, s', done) transition.
type Experience struct {
	State     []float64
	Action    schemas.Action
	Reward    float64
	NextState []float64
	Done      bool
}

// ReplayBuffer is a bounded ring buffer of experiences; when full, the oldest
// entry is evicted. It is owned exclusively by the exploration agent.
type ReplayBuffer struct {
	buf   []Experience
	next  int
	count int
}

// NewReplayBuffer returns a buffer with the given fixed capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReplayBuffer{buf: make([]Experience, capacity)}
}

// Add appends an experience, evicting the oldest when at capacity.
func (r *ReplayBuffer) Add(e Experience) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored experiences.
func (r *ReplayBuffer) Len() int { return r.count }

// Sample draws n distinct experiences uniformly at random. When fewer than n
// are stored, every stored experience is returned in random order.
func (r *ReplayBuffer) Sample(rng *rand.Rand, n int) []Experience {
	if n > r.count {
		n = r.count
	}
	batch := make([]Experience, n)
	for i, j := range rng.Perm(r.count)[:n] {
		batch[i] = r.buf[j]
	}
	return batch
}
