package pooledredis

import (
	"context"
	. "testing"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti(t *T) {
	ctx := testCtx(t)
	m := newMemStore()
	c := testClient(t, m.dial, Options{})
	k1, k2, k3 := randKey(), randKey(), randKey()

	var v1, v2 string
	var n int64
	var mn MaybeNil
	require.NoError(t, c.Multi(ctx,
		SetCmd{Key: k1, Value: "a"},
		SetCmd{Key: k2, Value: "b"},
		GetCmd{Key: k1, Rcv: &v1},
		Cmd(&v2, "GET", k2),
		Cmd(&mn, "GET", k3),
		DelCmd{Keys: []string{k1, k3}, Rcv: &n},
	))
	assert.Equal(t, "a", v1)
	assert.Equal(t, "b", v2)
	assert.True(t, mn.Nil)
	assert.Equal(t, int64(1), n)

	// every reply is decoded, even if an earlier one was an error
	var v3 string
	err := c.Multi(ctx,
		GetCmd{Key: k1, Rcv: &v1},
		GetCmd{Key: k2, Rcv: &v3},
	)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "b", v3)

	_, err = c.SAdd(ctx, k3, "x")
	require.NoError(t, err)
	err = c.Multi(ctx,
		GetCmd{Key: k3},
		SetCmd{Key: k1, Value: "c"},
	)
	assert.True(t, IsRemoteError(err))
	got, err := c.Get(ctx, k1)
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}

func TestMultiCommands(t *T) {
	ctx := testCtx(t)
	rec := new(recorder)
	c := testClient(t, rec.dial, Options{PoolMinSize: -1})

	require.NoError(t, c.Multi(ctx))
	assert.Empty(t, rec.take())

	// the recorder replies nil to EXEC, which is what redis does when a
	// WATCHed key changed.
	err := c.Multi(ctx, SetCmd{Key: "a", Value: 1}, Cmd(nil, "INCR", "b"))
	assert.True(t, IsConditionFailed(err))
	assert.Equal(t, [][]string{
		{"MULTI"},
		{"SET", "a", "1"},
		{"INCR", "b"},
		{"EXEC"},
	}, rec.take())
	assert.Equal(t, 1, c.Pool().NumAvailHandles())
}

func TestMultiQueueError(t *T) {
	ctx := testCtx(t)
	var calls [][]string
	dial := StubDial(func(_ context.Context, args []string) interface{} {
		calls = append(calls, args)
		switch args[0] {
		case "MULTI", "DISCARD":
			return "OK"
		case "BAD":
			return redis.Error("ERR unknown command 'bad'")
		default:
			return "QUEUED"
		}
	})
	c := testClient(t, dial, Options{PoolMinSize: 1, PoolMaxSize: 1})

	err := c.Multi(ctx, Cmd(nil, "PING"), Cmd(nil, "BAD"), Cmd(nil, "PING"))
	assert.Equal(t, redis.Error("ERR unknown command 'bad'"), err)
	assert.Equal(t, [][]string{
		{"MULTI"},
		{"PING"},
		{"BAD"},
		{"DISCARD"},
	}, calls)
}

type transactorHandle struct {
	Handle
	got [][]Command
}

func (th *transactorHandle) Transaction(_ context.Context, cmds []Command) ([]interface{}, error) {
	th.got = append(th.got, cmds)
	replies := make([]interface{}, len(cmds))
	for i := range cmds {
		replies[i] = []byte("ok")
	}
	return replies, nil
}

func TestMultiTransactor(t *T) {
	ctx := testCtx(t)
	th := &transactorHandle{
		Handle: NewStubHandle(func(context.Context, []string) interface{} {
			return redis.Error("ERR Do shouldn't be called")
		}),
	}
	dial := func(context.Context, ConnConfig) (Handle, error) { return th, nil }
	c := testClient(t, dial, Options{PoolMinSize: 1, PoolMaxSize: 1})

	var a, b string
	require.NoError(t, c.Multi(ctx, Cmd(&a, "GET", "a"), GetCmd{Key: "b", Rcv: &b}))
	assert.Equal(t, "ok", a)
	assert.Equal(t, "ok", b)
	assert.Equal(t, [][]Command{{
		{Name: "GET", Args: []interface{}{"a"}},
		{Name: "GET", Args: []interface{}{"b"}},
	}}, th.got)
}
