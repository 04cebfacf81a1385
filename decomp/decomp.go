// Package decomp owns the domain-decomposition bookkeeping: the rectangular
// tile each worker is responsible for, the halo refresh between kernel
// stages, and the collective finalize that tears every worker down on a
// fatal condition.
package decomp

import (
	"fmt"
	"sync"
)

// Tile is one worker's rectangular ownership of the interior index range.
type Tile struct {
	Rank                           int
	ILower, IUpper, JLower, JUpper int // inclusive interior bounds
}

// Layout partitions the nx x ny interior into nProcX x nProcY tiles, one
// per worker, splitting each axis with a maximum imbalance of one cell.
type Layout struct {
	NProcX, NProcY int
	Nx, Ny         int
	Tiles          []Tile
}

// NewLayout validates the launch contract: the worker count must equal
// nProcX*nProcY and no tile may be empty.
func NewLayout(nx, ny, nProcX, nProcY, workers int) (l *Layout, err error) {
	if workers != nProcX*nProcY {
		return nil, fmt.Errorf("have %d workers for a %dx%d process grid, need %d",
			workers, nProcX, nProcY, nProcX*nProcY)
	}
	if nProcX > nx || nProcY > ny {
		return nil, fmt.Errorf("%dx%d process grid cannot tile a %dx%d domain",
			nProcX, nProcY, nx, ny)
	}
	l = &Layout{NProcX: nProcX, NProcY: nProcY, Nx: nx, Ny: ny}
	for pj := 0; pj < nProcY; pj++ {
		jlo, jhi := split1D(ny, nProcY, pj)
		for pi := 0; pi < nProcX; pi++ {
			ilo, ihi := split1D(nx, nProcX, pi)
			l.Tiles = append(l.Tiles, Tile{
				Rank:   pj*nProcX + pi,
				ILower: ilo, IUpper: ihi,
				JLower: jlo, JUpper: jhi,
			})
		}
	}
	return
}

// split1D cuts 1..n into np pieces, spreading the remainder over the first
// pieces. Returns inclusive interior bounds.
func split1D(n, np, piece int) (lo, hi int) {
	var (
		size      = n / np
		remainder = n % np
	)
	lo = piece*size + min(piece, remainder) + 1
	hi = lo + size - 1
	if piece < remainder {
		hi++
	}
	return
}

// Collective runs the SPMD worker set. Workers compute tile-local stages
// between barriers; any worker may post a fatal error, after which every
// barrier releases with the collective marked failed so all workers unwind
// through Finalize.
type Collective struct {
	Layout *Layout

	mu     sync.Mutex
	failed error
}

func NewCollective(l *Layout) *Collective {
	return &Collective{Layout: l}
}

// Abort records the first fatal error posted by any worker.
func (c *Collective) Abort(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed == nil {
		c.failed = err
	}
}

// Err reports the error the collective failed with, if any.
func (c *Collective) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// ParallelTiles runs fn once per tile concurrently and blocks until every
// tile has finished: the barrier at the end of a kernel stage. Stages after
// a fatal abort become no-ops so workers drain quickly to Finalize.
func (c *Collective) ParallelTiles(fn func(t Tile)) {
	if c.Err() != nil {
		return
	}
	var wg sync.WaitGroup
	for _, t := range c.Layout.Tiles {
		wg.Add(1)
		go func(t Tile) {
			defer wg.Done()
			fn(t)
		}(t)
	}
	wg.Wait()
}

// Wrapper is any halo-padded field.
type Wrapper interface {
	Wrap()
}

// RefreshHalo is the single halo operation: the periodic wrap doubles as
// the neighbor exchange because tiles share the arrays in process; the
// barrier in ParallelTiles has already ordered writes before reads.
func (c *Collective) RefreshHalo(fields ...Wrapper) {
	for _, f := range fields {
		f.Wrap()
	}
}

// Finalize tears the collective down and reports the exit status: nil for a
// happy termination, the first fatal error otherwise.
func (c *Collective) Finalize() error {
	return c.Err()
}
