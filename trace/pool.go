package trace

import (
	"context"
	"time"
)

// PoolTrace is passed into pooledredis.NewPool via PoolConfig, and contains
// callbacks which can be triggered for specific events during the Pool's
// runtime.
//
// All callbacks are called synchronously, and never while the Pool's internal
// lock is held.
type PoolTrace struct {
	// ConnCreated is called when the Pool creates a new Handle, or fails to.
	ConnCreated func(PoolConnCreated)

	// ConnClosed is called when the Pool closes a Handle.
	ConnClosed func(PoolConnClosed)

	// InitCompleted is called after the Pool creates all Handles during
	// initialization.
	InitCompleted func(PoolInitCompleted)

	// AcquireQueued is called when an Acquire call finds the Pool exhausted
	// and has to wait in line for a Handle.
	AcquireQueued func(PoolAcquireQueued)
}

// PoolCommon contains information which is passed into all Pool-related
// callbacks.
type PoolCommon struct {
	// Addr is the address of the redis instance the Pool's Handles connect
	// to, if known.
	Addr string

	// MinSize and MaxSize indicate the bounds the Pool was initialized with.
	MinSize, MaxSize int

	// AvailCount indicates the number of Handles sitting idle in the Pool,
	// and InUseCount the number checked out, at the moment the trace occurs.
	AvailCount, InUseCount int
}

// PoolConnCreatedReason enumerates all the different reasons a Handle might be
// created and trigger a ConnCreated trace.
type PoolConnCreatedReason string

// All possible values of PoolConnCreatedReason.
const (
	// PoolConnCreatedReasonInitialization indicates a Handle was created during
	// initialization of the Pool (i.e. within NewPool).
	PoolConnCreatedReasonInitialization PoolConnCreatedReason = "initialization"

	// PoolConnCreatedReasonRefill indicates a Handle was created during a
	// refill event, because the Pool had dropped below its minimum size.
	PoolConnCreatedReasonRefill PoolConnCreatedReason = "refill"

	// PoolConnCreatedReasonPoolEmpty indicates a Handle was created because
	// the Pool had none available when Acquire was called.
	PoolConnCreatedReasonPoolEmpty PoolConnCreatedReason = "pool empty"
)

// PoolConnCreated is passed into the PoolTrace.ConnCreated callback whenever
// the Pool creates a new Handle.
type PoolConnCreated struct {
	PoolCommon

	// Context is the Context used when creating the Handle.
	Context context.Context

	// Reason describes why the Handle was created.
	Reason PoolConnCreatedReason

	// ConnectTime is how long it took to create the Handle.
	ConnectTime time.Duration

	// Err will be filled if creating the Handle failed.
	Err error
}

// PoolConnClosedReason enumerates all the different reasons a Handle might be
// closed and trigger a ConnClosed trace.
type PoolConnClosedReason string

// All possible values of PoolConnClosedReason.
const (
	// PoolConnClosedReasonPoolDrained indicates a Handle was closed because
	// the Drain method was called on the Pool.
	PoolConnClosedReasonPoolDrained PoolConnClosedReason = "pool drained"

	// PoolConnClosedReasonIdleTimeout indicates a Handle sat unused in the
	// Pool for longer than its idle timeout.
	PoolConnClosedReasonIdleTimeout PoolConnClosedReason = "idle timeout"

	// PoolConnClosedReasonBroken indicates a Handle reported a fatal error
	// and so could not be returned to the Pool.
	PoolConnClosedReasonBroken PoolConnClosedReason = "broken"
)

// PoolConnClosed is passed into the PoolTrace.ConnClosed callback whenever the
// Pool closes a Handle.
type PoolConnClosed struct {
	PoolCommon

	// Reason describes why the Handle was closed.
	Reason PoolConnClosedReason

	// Err is the error returned from closing the Handle, if any.
	Err error
}

// PoolInitCompleted is passed into the PoolTrace.InitCompleted callback
// whenever Pool is done initializing.
type PoolInitCompleted struct {
	PoolCommon

	// ElapsedTime is how long it took to finish initialization.
	ElapsedTime time.Duration
}

// PoolAcquireQueued is passed into the PoolTrace.AcquireQueued callback
// whenever an Acquire call has to wait for a Handle.
type PoolAcquireQueued struct {
	PoolCommon

	// QueueLen is the number of callers waiting, including this one.
	QueueLen int
}
