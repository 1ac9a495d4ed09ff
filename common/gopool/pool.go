// Package gopool hosts long running tasks on an ants goroutine pool.
package gopool

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Pool runs a bounded number of tasks and lets the owner wait for all of
// them to return.
type Pool struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

// NewPool creates a pool running at most size tasks at once. Submitting
// more fails with ants.ErrPoolOverload instead of blocking.
func NewPool(size int) (*Pool, error) {
	pool, err := ants.NewPool(size, ants.WithExpiryDuration(10*time.Second), ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// Submit submits a task to pool.
func (p *Pool) Submit(task func()) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		task()
	})
	if err != nil {
		p.wg.Done()
	}
	return err
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Running returns the number of the currently running goroutines.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap returns the capacity of this pool.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Free returns the available goroutines to work.
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Release closes the pool. Running tasks are not interrupted.
func (p *Pool) Release() {
	p.pool.Release()
}
