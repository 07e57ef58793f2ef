package pooledredis

import (
	"container/list"
	"context"
	"net"
	"sync"
	"time"

	"github.com/mediocregopher/pooledredis/internal/proc"
	"github.com/mediocregopher/pooledredis/trace"
)

type poolHandle struct {
	Handle
	p       *Pool
	created time.Time

	// The most recent network error which occurred during Do. A Handle with a
	// network error is never put back into the free set.
	lastIOErr error

	// idleGen is bumped every time the Handle enters or leaves the free set, so
	// that a stale idle timer can tell it no longer applies.
	idleGen   uint64
	idleTimer *time.Timer
}

func (ph *poolHandle) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	res, err := ph.Handle.Do(ctx, cmd, args...)
	if nerr, _ := err.(net.Error); nerr != nil {
		ph.lastIOErr = err
	}
	return res, err
}

func (ph *poolHandle) broken() error {
	if ph.lastIOErr != nil {
		return ph.lastIOErr
	}
	return ph.Handle.Err()
}

// unwrapHandle returns the Handle created by the HandleFunc, if the given one
// came from a Pool.
func unwrapHandle(h Handle) Handle {
	if ph, ok := h.(*poolHandle); ok {
		return ph.Handle
	}
	return h
}

////////////////////////////////////////////////////////////////////////////////

// PoolConfig is used to create Pool instances with particular settings. All
// fields are optional, all methods are thread-safe.
type PoolConfig struct {
	// MinSize is the number of Handles the Pool creates during
	// initialization, and below which it won't let its Handles be closed for
	// being idle. Defaults to 0.
	MinSize int

	// MaxSize is the most Handles the Pool will have open at once, whether
	// idle or checked out. Acquire calls beyond that wait in line until a
	// Handle is released.
	//
	// Defaults to 10.
	MaxSize int

	// IdleTimeout is how long a Handle may sit unused in the Pool before it is
	// closed, as long as MinSize Handles remain. If -1 Handles are never closed
	// for being idle.
	//
	// Defaults to 60 seconds.
	IdleTimeout time.Duration

	// RefillInterval is the interval at which the Pool checks whether it has
	// dropped below MinSize Handles (e.g. because broken ones were closed),
	// and if so creates one more. If -1 no refilling is done.
	//
	// Defaults to 1 second.
	RefillInterval time.Duration

	// ContinueOnWarmupError causes NewPool to succeed even if some of the
	// MinSize Handles could not be created. The failures are still reported
	// via Trace, and the Pool will create Handles as they are needed.
	ContinueOnWarmupError bool

	// Addr is only used to fill in traces.
	Addr string

	// Trace contains callbacks that a Pool can use to trace itself.
	Trace trace.PoolTrace
}

func (cfg PoolConfig) withDefaults() PoolConfig {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.RefillInterval == 0 {
		cfg.RefillInterval = 1 * time.Second
	}
	return cfg
}

func (cfg PoolConfig) validate() error {
	if cfg.MaxSize < 1 {
		return ErrConfiguration.New("pool max size must be at least 1, got %d", cfg.MaxSize)
	} else if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return ErrConfiguration.New(
			"pool min size must be between 0 and max size (%d), got %d",
			cfg.MaxSize, cfg.MinSize,
		)
	}
	return nil
}

type acquireResult struct {
	ph *poolHandle

	// createSlot means a slot has been reserved in the Pool and the waiter
	// should create a new Handle to fill it.
	createSlot bool

	err error
}

type waiter struct {
	ch chan acquireResult // buffered, receives exactly one result
	el *list.Element      // nil once no longer in the queue, protected by Pool.l
}

// Pool is a bounded set of reusable Handles. Handles are created on demand up
// to MaxSize; once that many are checked out, callers of Acquire wait in line,
// and are given released Handles strictly in the order they arrived.
type Pool struct {
	cfg       PoolConfig
	newHandle func(context.Context) (Handle, error)
	proc      *proc.Proc

	l     sync.Mutex
	free  []*poolHandle // used in LIFO order
	inUse map[*poolHandle]struct{}

	// creating and closing count Handles which are being created or closed
	// outside of the lock. Both count towards MaxSize.
	creating, closing int

	waiters   *list.List
	draining  bool
	drained   bool
	drainedCh chan struct{}
}

// NewPool creates a *Pool which uses newHandle to create its Handles. MinSize
// Handles are created before NewPool returns; if any of them fail then NewPool
// returns an ErrAcquisition error, unless ContinueOnWarmupError is set.
//
// The Context is only used while creating the initial Handles.
func NewPool(ctx context.Context, cfg PoolConfig, newHandle func(context.Context) (Handle, error)) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:       cfg,
		newHandle: newHandle,
		proc:      proc.New(),
		inUse:     map[*poolHandle]struct{}{},
		waiters:   list.New(),
		drainedCh: make(chan struct{}),
	}

	startTime := time.Now()
	for i := 0; i < cfg.MinSize; i++ {
		ph, err := p.create(ctx, trace.PoolConnCreatedReasonInitialization)
		if err != nil && !cfg.ContinueOnWarmupError {
			p.Drain(context.Background())
			return nil, ErrAcquisition.Wrap(err, "warming up pool")
		} else if err != nil {
			continue
		}
		p.l.Lock()
		p.pushFreeLocked(ph)
		p.l.Unlock()
	}

	if cfg.Trace.InitCompleted != nil {
		cfg.Trace.InitCompleted(trace.PoolInitCompleted{
			PoolCommon:  p.common(),
			ElapsedTime: time.Since(startTime),
		})
	}

	if cfg.RefillInterval > 0 && cfg.MinSize > 0 {
		p.proc.AtIntervalDo(cfg.RefillInterval, p.doRefill)
	}
	return p, nil
}

func (p *Pool) common() trace.PoolCommon {
	p.l.Lock()
	defer p.l.Unlock()
	return trace.PoolCommon{
		Addr:       p.cfg.Addr,
		MinSize:    p.cfg.MinSize,
		MaxSize:    p.cfg.MaxSize,
		AvailCount: len(p.free),
		InUseCount: len(p.inUse),
	}
}

// create calls the HandleFunc. It must be called with p.l unlocked, and with a
// slot already reserved for the Handle.
func (p *Pool) create(ctx context.Context, reason trace.PoolConnCreatedReason) (*poolHandle, error) {
	start := time.Now()
	h, err := p.newHandle(ctx)
	if p.cfg.Trace.ConnCreated != nil {
		p.cfg.Trace.ConnCreated(trace.PoolConnCreated{
			PoolCommon:  p.common(),
			Context:     ctx,
			Reason:      reason,
			ConnectTime: time.Since(start),
			Err:         err,
		})
	}
	if err != nil {
		return nil, err
	}
	return &poolHandle{Handle: h, p: p, created: start}, nil
}

// closeHandle must be called with p.l unlocked.
func (p *Pool) closeHandle(ph *poolHandle, reason trace.PoolConnClosedReason) {
	err := ph.Handle.Close()
	if p.cfg.Trace.ConnClosed != nil {
		p.cfg.Trace.ConnClosed(trace.PoolConnClosed{
			PoolCommon: p.common(),
			Reason:     reason,
			Err:        err,
		})
	}
}

func (p *Pool) totalLocked() int {
	return len(p.free) + len(p.inUse) + p.creating + p.closing
}

func (p *Pool) popWaiterLocked() *waiter {
	el := p.waiters.Front()
	if el == nil {
		return nil
	}
	w := p.waiters.Remove(el).(*waiter)
	w.el = nil
	return w
}

func (p *Pool) pushFreeLocked(ph *poolHandle) {
	ph.idleGen++
	p.free = append(p.free, ph)
	if p.cfg.IdleTimeout > 0 {
		gen := ph.idleGen
		ph.idleTimer = time.AfterFunc(p.cfg.IdleTimeout, func() {
			p.evictIdle(ph, gen)
		})
	}
}

func (p *Pool) popFreeLocked() *poolHandle {
	if len(p.free) == 0 {
		return nil
	}
	ph := p.free[len(p.free)-1]
	p.free[len(p.free)-1] = nil
	p.free = p.free[:len(p.free)-1]
	ph.idleGen++
	if ph.idleTimer != nil {
		ph.idleTimer.Stop()
		ph.idleTimer = nil
	}
	return ph
}

// putLocked gives the Handle to the oldest waiter, or puts it in the free set
// if there are none.
func (p *Pool) putLocked(ph *poolHandle) {
	if w := p.popWaiterLocked(); w != nil {
		p.inUse[ph] = struct{}{}
		w.ch <- acquireResult{ph: ph}
		return
	}
	p.pushFreeLocked(ph)
}

// slotFreedLocked is called whenever the Pool's total count has gone down by
// one. The freed slot is passed on to the oldest waiter, so it can create a
// Handle for itself.
func (p *Pool) slotFreedLocked() {
	if p.draining {
		p.checkDrainedLocked()
		return
	}
	if p.totalLocked() >= p.cfg.MaxSize {
		return
	}
	if w := p.popWaiterLocked(); w != nil {
		p.creating++
		w.ch <- acquireResult{createSlot: true}
	}
}

func (p *Pool) checkDrainedLocked() {
	if p.draining && !p.drained && p.totalLocked() == 0 {
		p.drained = true
		close(p.drainedCh)
	}
}

// closeAndFree closes a Handle which the caller has already counted in
// p.closing, then frees up its slot.
func (p *Pool) closeAndFree(ph *poolHandle, reason trace.PoolConnClosedReason) {
	p.closeHandle(ph, reason)
	p.l.Lock()
	p.closing--
	p.slotFreedLocked()
	p.l.Unlock()
}

// finishCreate is called once a Handle has been created (or failed to be) in a
// reserved slot, on behalf of an Acquire call.
func (p *Pool) finishCreate(ph *poolHandle, err error) (Handle, error) {
	p.l.Lock()
	p.creating--
	if err != nil {
		p.slotFreedLocked()
		p.l.Unlock()
		return nil, ErrAcquisition.Wrap(err, "creating handle")
	} else if p.draining {
		p.closing++
		p.l.Unlock()
		p.closeAndFree(ph, trace.PoolConnClosedReasonPoolDrained)
		return nil, ErrPoolDrained.New("pool was drained while creating handle")
	}
	p.inUse[ph] = struct{}{}
	p.l.Unlock()
	return ph, nil
}

func (p *Pool) createForAcquire(ctx context.Context) (Handle, error) {
	ph, err := p.create(ctx, trace.PoolConnCreatedReasonPoolEmpty)
	return p.finishCreate(ph, err)
}

// Acquire returns a Handle for the exclusive use of the caller, who must pass
// it to Release once done with it.
//
// If a Handle is sitting idle in the Pool it is returned immediately. If not,
// and the Pool has fewer than MaxSize Handles, a new one is created. Otherwise
// Acquire blocks until a Handle is released, or until the Context is done.
//
// Acquire returns an ErrPoolDrained error once Drain has been called, and an
// ErrAcquisition error if a new Handle could not be created.
func (p *Pool) Acquire(ctx context.Context) (Handle, error) {
	p.l.Lock()
	if p.draining {
		p.l.Unlock()
		return nil, ErrPoolDrained.New("pool has been drained")
	} else if ph := p.popFreeLocked(); ph != nil {
		p.inUse[ph] = struct{}{}
		p.l.Unlock()
		return ph, nil
	} else if p.totalLocked() < p.cfg.MaxSize {
		p.creating++
		p.l.Unlock()
		return p.createForAcquire(ctx)
	}

	w := &waiter{ch: make(chan acquireResult, 1)}
	w.el = p.waiters.PushBack(w)
	queueLen := p.waiters.Len()
	p.l.Unlock()

	if p.cfg.Trace.AcquireQueued != nil {
		p.cfg.Trace.AcquireQueued(trace.PoolAcquireQueued{
			PoolCommon: p.common(),
			QueueLen:   queueLen,
		})
	}

	var res acquireResult
	select {
	case res = <-w.ch:
	case <-ctx.Done():
		p.l.Lock()
		if w.el != nil {
			p.waiters.Remove(w.el)
			w.el = nil
			p.l.Unlock()
			return nil, ctx.Err()
		}
		p.l.Unlock()

		// the waiter was dequeued right as the Context ended, whatever it was
		// given has to be handed back.
		p.abandon(<-w.ch)
		return nil, ctx.Err()
	}

	switch {
	case res.err != nil:
		return nil, res.err
	case res.createSlot:
		return p.createForAcquire(ctx)
	default:
		return res.ph, nil
	}
}

func (p *Pool) abandon(res acquireResult) {
	switch {
	case res.ph != nil:
		p.Release(res.ph)
	case res.createSlot:
		p.l.Lock()
		p.creating--
		p.slotFreedLocked()
		p.l.Unlock()
	}
}

// Release returns a Handle gotten from Acquire to the Pool. If there are
// callers waiting in Acquire the Handle is given directly to the one which has
// waited longest.
//
// If the Handle is broken (see Handle's Err method), or the Pool is being
// drained, the Handle is closed instead.
//
// Release panics if given a Handle which isn't checked out of this Pool.
func (p *Pool) Release(h Handle) {
	ph, _ := h.(*poolHandle)
	p.l.Lock()
	if ph == nil || ph.p != p {
		p.l.Unlock()
		panic("pooledredis: Release called with a Handle not belonging to the Pool")
	} else if _, ok := p.inUse[ph]; !ok {
		p.l.Unlock()
		panic("pooledredis: Release called with a Handle which isn't checked out")
	}
	delete(p.inUse, ph)

	var reason trace.PoolConnClosedReason
	if p.draining {
		reason = trace.PoolConnClosedReasonPoolDrained
	} else if ph.broken() != nil {
		reason = trace.PoolConnClosedReasonBroken
	} else {
		p.putLocked(ph)
		p.l.Unlock()
		return
	}

	p.closing++
	p.l.Unlock()
	p.closeAndFree(ph, reason)
}

func (p *Pool) evictIdle(ph *poolHandle, gen uint64) {
	p.l.Lock()
	// Handles already being closed don't count, otherwise several timers firing
	// together could take the Pool below MinSize.
	if p.draining || ph.idleGen != gen || p.totalLocked()-p.closing <= p.cfg.MinSize {
		p.l.Unlock()
		return
	}

	i := -1
	for j := range p.free {
		if p.free[j] == ph {
			i = j
			break
		}
	}
	if i < 0 {
		p.l.Unlock()
		return
	}
	p.free = append(p.free[:i], p.free[i+1:]...)
	ph.idleGen++
	ph.idleTimer = nil
	p.closing++
	p.l.Unlock()

	p.closeAndFree(ph, trace.PoolConnClosedReasonIdleTimeout)
}

func (p *Pool) doRefill(ctx context.Context) {
	p.l.Lock()
	if p.draining || p.totalLocked() >= p.cfg.MinSize {
		p.l.Unlock()
		return
	}
	p.creating++
	p.l.Unlock()

	ph, err := p.create(ctx, trace.PoolConnCreatedReasonRefill)

	p.l.Lock()
	p.creating--
	if err != nil {
		p.slotFreedLocked()
		p.l.Unlock()
		return
	} else if p.draining {
		p.closing++
		p.l.Unlock()
		p.closeAndFree(ph, trace.PoolConnClosedReasonPoolDrained)
		return
	}
	p.putLocked(ph)
	p.l.Unlock()
}

// Do acquires a Handle, runs the Action with it, and releases the Handle,
// whether or not the Action succeeded.
func (p *Pool) Do(ctx context.Context, a Action) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(h)
	return a.Run(ctx, h)
}

// Drain shuts the Pool down. All calls to Acquire, both those waiting and
// those made afterwards, return ErrPoolDrained. Idle Handles are closed right
// away, checked out Handles are closed as they are released, and once every
// Handle has been closed Drain returns.
//
// If the Context is done before then Drain returns its error; the Pool keeps
// draining, and Drain may be called again to wait on it. Calling Drain on an
// already drained Pool returns nil immediately.
func (p *Pool) Drain(ctx context.Context) error {
	p.l.Lock()
	if !p.draining {
		p.draining = true
		for w := p.popWaiterLocked(); w != nil; w = p.popWaiterLocked() {
			w.ch <- acquireResult{err: ErrPoolDrained.New("pool was drained while waiting for handle")}
		}
		free := p.free
		p.free = nil
		p.closing += len(free)
		for _, ph := range free {
			ph.idleGen++
			if ph.idleTimer != nil {
				ph.idleTimer.Stop()
			}
		}
		p.l.Unlock()

		for _, ph := range free {
			p.closeAndFree(ph, trace.PoolConnClosedReasonPoolDrained)
		}

		p.l.Lock()
		p.checkDrainedLocked()
	}
	p.l.Unlock()

	// stop the refill routine, it will close anything it's in the middle of
	// creating.
	p.proc.Close()

	select {
	case <-p.drainedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NumAvailHandles returns the number of Handles currently idle in the Pool.
func (p *Pool) NumAvailHandles() int {
	p.l.Lock()
	defer p.l.Unlock()
	return len(p.free)
}

// NumInUse returns the number of Handles currently checked out of the Pool.
func (p *Pool) NumInUse() int {
	p.l.Lock()
	defer p.l.Unlock()
	return len(p.inUse)
}

// NumTotal returns the number of Handles the Pool currently has open, or is in
// the process of opening or closing.
func (p *Pool) NumTotal() int {
	p.l.Lock()
	defer p.l.Unlock()
	return p.totalLocked()
}
