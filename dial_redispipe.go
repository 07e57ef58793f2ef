package pooledredis

import (
	"context"
	"sync/atomic"

	"github.com/joomcode/errorx"
	rpredis "github.com/joomcode/redispipe/redis"
	"github.com/joomcode/redispipe/redisconn"
)

type redispipeHandle struct {
	conn   *redisconn.Connection
	closed int32
}

func (h *redispipeHandle) sync() rpredis.SyncCtx {
	return rpredis.SyncCtx{S: h.conn}
}

func (h *redispipeHandle) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	res := h.sync().Do(ctx, cmd, args...)
	if err := rpredis.AsError(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Transaction implements the Transactor interface, since a redispipe
// connection is shared by all requests sent on it and so can't be put into
// MULTI mode by a plain Do.
func (h *redispipeHandle) Transaction(ctx context.Context, cmds []Command) ([]interface{}, error) {
	reqs := make([]rpredis.Request, len(cmds))
	for i, cmd := range cmds {
		reqs[i] = rpredis.Req(cmd.Name, cmd.Args...)
	}
	return h.sync().SendTransaction(ctx, reqs)
}

// Err only reports the Handle having been closed, redispipe reconnects on its
// own after a connection is lost.
func (h *redispipeHandle) Err() error {
	if atomic.LoadInt32(&h.closed) == 1 {
		return errHandleClosed
	}
	return nil
}

func (h *redispipeHandle) Close() error {
	if !atomic.CompareAndSwapInt32(&h.closed, 0, 1) {
		return errHandleClosed
	}
	h.conn.Close()
	return nil
}

func isRedispipeResultErr(err error) bool {
	return errorx.IsOfType(err, rpredis.ErrResult)
}

// RedispipeDialer creates Handles using github.com/joomcode/redispipe. Each
// Handle is its own redispipe connection, which pipelines the requests made on
// it; a Pool of them spreads load over several connections.
type RedispipeDialer struct {
	// Opts are passed through to redisconn.Connect, with DB and Password
	// overwritten from the ConnConfig.
	Opts redisconn.Opts
}

// Dial implements the HandleFunc signature.
func (d RedispipeDialer) Dial(ctx context.Context, cc ConnConfig) (Handle, error) {
	if cc.Username != "" {
		return nil, ErrConfiguration.New("redispipe does not support authenticating with a username")
	}
	opts := d.Opts
	opts.DB = cc.DB
	opts.Password = cc.Password

	conn, err := redisconn.Connect(ctx, cc.Addr(), opts)
	if err != nil {
		return nil, err
	}
	return &redispipeHandle{conn: conn}, nil
}

// DialRedispipe is a HandleFunc which creates a Handle using redispipe with
// default settings.
func DialRedispipe(ctx context.Context, cc ConnConfig) (Handle, error) {
	return RedispipeDialer{}.Dial(ctx, cc)
}
