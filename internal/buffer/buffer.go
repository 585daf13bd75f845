// Package buffer holds the fixed-capacity window of recent final utterances
// that classifiers and suggestion prompts read as context.
package buffer

import "github.com/hpungsan/parley/internal/transcript"

// DefaultCapacity is the window size used when a non-positive capacity is given.
const DefaultCapacity = 20

// Rolling is a FIFO ring of the most recent utterances in arrival order.
// It is not safe for concurrent writers; the owning session serializes access.
type Rolling struct {
	items []transcript.Utterance
	head  int // index of the oldest element
	size  int
}

// New creates an empty buffer holding at most capacity utterances.
func New(capacity int) *Rolling {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Rolling{items: make([]transcript.Utterance, capacity)}
}

// Append adds u, evicting the oldest utterance when the buffer is full.
func (r *Rolling) Append(u transcript.Utterance) {
	c := len(r.items)
	if r.size < c {
		r.items[(r.head+r.size)%c] = u
		r.size++
		return
	}
	r.items[r.head] = u
	r.head = (r.head + 1) % c
}

// ContextWindow returns a copy of the last min(n, Len()) utterances, oldest first.
func (r *Rolling) ContextWindow(n int) []transcript.Utterance {
	if n <= 0 || r.size == 0 {
		return nil
	}
	n = min(n, r.size)
	out := make([]transcript.Utterance, n)
	c := len(r.items)
	start := r.head + r.size - n
	for i := range n {
		out[i] = r.items[(start+i)%c]
	}
	return out
}

// Clear empties the buffer and releases references to stored utterances.
func (r *Rolling) Clear() {
	clear(r.items)
	r.head = 0
	r.size = 0
}

// Len returns the number of buffered utterances.
func (r *Rolling) Len() int { return r.size }

// Cap returns the buffer capacity.
func (r *Rolling) Cap() int { return len(r.items) }
