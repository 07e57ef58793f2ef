package pooledredis

import (
	"github.com/sirupsen/logrus"

	"github.com/mediocregopher/pooledredis/trace"
)

func poolFields(pc trace.PoolCommon) logrus.Fields {
	return logrus.Fields{
		"addr":   pc.Addr,
		"avail":  pc.AvailCount,
		"in_use": pc.InUseCount,
	}
}

// LogPoolTrace returns a PoolTrace which writes each Pool event to the given
// logger. Failures to create a Handle are logged at warn level, everything
// else at debug.
func LogPoolTrace(l logrus.FieldLogger) trace.PoolTrace {
	return trace.PoolTrace{
		ConnCreated: func(c trace.PoolConnCreated) {
			e := l.WithFields(poolFields(c.PoolCommon)).
				WithField("reason", string(c.Reason)).
				WithField("connect_time", c.ConnectTime)
			if c.Err != nil {
				e.WithError(c.Err).Warn("redis handle creation failed")
				return
			}
			e.Debug("redis handle created")
		},
		ConnClosed: func(c trace.PoolConnClosed) {
			e := l.WithFields(poolFields(c.PoolCommon)).
				WithField("reason", string(c.Reason))
			if c.Err != nil {
				e = e.WithError(c.Err)
			}
			e.Debug("redis handle closed")
		},
		InitCompleted: func(c trace.PoolInitCompleted) {
			l.WithFields(poolFields(c.PoolCommon)).
				WithField("elapsed", c.ElapsedTime).
				Debug("redis pool initialized")
		},
		AcquireQueued: func(c trace.PoolAcquireQueued) {
			l.WithFields(poolFields(c.PoolCommon)).
				WithField("queue_len", c.QueueLen).
				Debug("redis pool exhausted, waiting for handle")
		},
	}
}

// chainPoolTrace returns a PoolTrace calling the callbacks of a and then b.
func chainPoolTrace(a, b trace.PoolTrace) trace.PoolTrace {
	return trace.PoolTrace{
		ConnCreated: func(c trace.PoolConnCreated) {
			if a.ConnCreated != nil {
				a.ConnCreated(c)
			}
			if b.ConnCreated != nil {
				b.ConnCreated(c)
			}
		},
		ConnClosed: func(c trace.PoolConnClosed) {
			if a.ConnClosed != nil {
				a.ConnClosed(c)
			}
			if b.ConnClosed != nil {
				b.ConnClosed(c)
			}
		},
		InitCompleted: func(c trace.PoolInitCompleted) {
			if a.InitCompleted != nil {
				a.InitCompleted(c)
			}
			if b.InitCompleted != nil {
				b.InitCompleted(c)
			}
		},
		AcquireQueued: func(c trace.PoolAcquireQueued) {
			if a.AcquireQueued != nil {
				a.AcquireQueued(c)
			}
			if b.AcquireQueued != nil {
				b.AcquireQueued(c)
			}
		},
	}
}
