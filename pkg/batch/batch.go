// Package batch coordinates Montgomery simultaneous inversion across the
// worker goroutines of a signing or verification session. Each worker
// submits a single nonzero Fp² element; the worker whose submission fills
// the batch performs one field inversion plus 3(N−1) multiplications and
// releases everyone.
package batch

import (
	"sync"

	"github.com/luxfi/isosign/pkg/math/fp2"
)

// Batch accumulates up to a fixed number of Fp² elements and inverts them
// all at once. The capacity is declared at construction and equals the
// number of submissions the batch will receive; the final submitter runs
// the inversion inside the submission critical section and then broadcasts
// completion by closing the latch channel.
type Batch struct {
	f   *fp2.Field
	mu  sync.Mutex
	in  []fp2.Element
	out []fp2.Element
	cnt int

	done chan struct{}
}

// New creates a batch for exactly capacity submissions. A zero-capacity
// batch is complete immediately, so callers sized from an empty challenge
// subset still terminate.
func New(f *fp2.Field, capacity int) *Batch {
	b := &Batch{
		f:    f,
		in:   make([]fp2.Element, capacity),
		out:  make([]fp2.Element, capacity),
		done: make(chan struct{}),
	}
	if capacity == 0 {
		close(b.done)
	}
	return b
}

// Submit appends x and returns the slot index to pass to Result. The caller
// that fills the batch computes all inverses before Submit returns. Inputs
// must be nonzero; submitting more than capacity elements is a programming
// error and panics.
func (b *Batch) Submit(x fp2.Element) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cnt >= len(b.in) {
		panic("batch: submission past declared capacity")
	}
	slot := b.cnt
	b.in[slot] = x
	b.cnt++
	if b.cnt == len(b.in) {
		b.invert()
		close(b.done)
	}
	return slot
}

// Result blocks until the batch has been inverted and returns the inverse
// of the element submitted into slot.
func (b *Batch) Result(slot int) fp2.Element {
	<-b.done
	return b.out[slot]
}

// Done exposes the completion latch: it is closed once every declared
// submission has arrived and the inversion has run.
func (b *Batch) Done() <-chan struct{} { return b.done }

// invert runs Montgomery's trick: one field inversion amortized over the
// whole batch.
func (b *Batch) invert() {
	f := b.f
	n := len(b.in)
	prefix := make([]fp2.Element, n)
	prefix[0] = b.in[0]
	for i := 1; i < n; i++ {
		prefix[i] = f.Mul(prefix[i-1], b.in[i])
	}
	inv := f.Inv(prefix[n-1])
	for i := n - 1; i >= 1; i-- {
		b.out[i] = f.Mul(inv, prefix[i-1])
		inv = f.Mul(inv, b.in[i])
	}
	b.out[0] = inv
}

// Invert runs x through the batch when b is non-nil and falls back to a
// direct field inversion otherwise. Primitives that take an optional batch
// collaborator use this single entry point.
func Invert(b *Batch, f *fp2.Field, x fp2.Element) fp2.Element {
	if b == nil {
		return f.Inv(x)
	}
	return b.Result(b.Submit(x))
}
