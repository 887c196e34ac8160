// Package rworker runs jobs on goroutines with a bound on how many run at once.
package rworker

import "sync"

// Job starts fn on a new goroutine once a slot in rate is free. The first
// error that finds room in errCh is kept, later ones are dropped.
func Job(wg *sync.WaitGroup, fn func() error, rate chan struct{}, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		rate <- struct{}{}
		defer func() { <-rate }()
		if err := fn(); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}

type Pool struct {
	wg    sync.WaitGroup
	rate  chan struct{}
	errCh chan error
}

// New returns a pool running at most n jobs at a time. n below 1 means 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{
		rate:  make(chan struct{}, n),
		errCh: make(chan error, 1),
	}
}

func (p *Pool) Go(fn func() error) {
	Job(&p.wg, fn, p.rate, p.errCh)
}

// Wait blocks until every started job returns and reports the first error.
func (p *Pool) Wait() error {
	p.wg.Wait()
	select {
	case err := <-p.errCh:
		return err
	default:
		return nil
	}
}
