// Package proc implements a lightweight pattern for setting up and tearing
// down go-routines cleanly and consistently.
package proc

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned from Close if it has already been called.
var ErrClosed = errors.New("previously closed")

// Proc tracks a set of go-routines which all share a single Context, which is
// cancelled when Close is called.
type Proc struct {
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New initializes and returns a Proc.
func New() *Proc {
	ctx, cancel := context.WithCancel(context.Background())
	return &Proc{ctx: ctx, cancel: cancel}
}

// Run spawns a go-routine which calls fn with the Proc's Context. The
// go-routine is expected to return once that Context is cancelled.
func (p *Proc) Run(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// AtIntervalDo spawns a go-routine which calls fn every d, until the Proc is
// closed.
func (p *Proc) AtIntervalDo(d time.Duration, fn func(ctx context.Context)) {
	p.Run(func(ctx context.Context) {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	})
}

// Close cancels the Proc's Context and waits for all go-routines spawned by
// Run to return. Subsequent calls return ErrClosed.
func (p *Proc) Close() error {
	err := ErrClosed
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		err = nil
	})
	return err
}
