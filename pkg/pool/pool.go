// Package pool dispatches the independent rounds of a signing or
// verification session across a fixed set of worker goroutines. Rounds are
// claimed in FIFO order from a shared counter but may complete in any
// order; each round writes only its own result slot.
package pool

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool is a reusable dispatcher with a fixed worker count. The zero count
// selects one worker per CPU.
type Pool struct {
	workers int
}

// NewPool returns a pool running count workers per Parallelize call.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	return &Pool{workers: count}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Parallelize runs body(r) for every round r in [0, rounds). The returned
// slice holds body's error per round, indexed by round id. The second
// return is non-nil only on an internal invariant violation (a counter out
// of range), in which case the whole call must be treated as failed.
func (p *Pool) Parallelize(rounds int, body func(r int) error) ([]error, error) {
	results := make([]error, rounds)
	if rounds == 0 {
		return results, nil
	}

	workers := p.workers
	if workers > rounds {
		workers = rounds
	}

	var mu sync.Mutex
	next := 0

	g := new(errgroup.Group)
	for t := 0; t < workers; t++ {
		g.Go(func() error {
			for {
				mu.Lock()
				r := next
				next++
				mu.Unlock()
				if r >= rounds {
					return nil
				}
				if r < 0 {
					return fmt.Errorf("pool: round counter out of range: %d", r)
				}
				results[r] = body(r)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FirstError folds a per-round result slice to the lowest-round failure,
// or nil when every round succeeded.
func FirstError(results []error) error {
	for r, err := range results {
		if err != nil {
			return fmt.Errorf("round %d: %w", r, err)
		}
	}
	return nil
}
