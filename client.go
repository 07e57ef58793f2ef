package pooledredis

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is the command surface for a single redis instance. Every method
// acquires a Handle from the Client's Pool, runs one Action with it, and
// releases it again whether or not the Action succeeded.
//
// Client is safe for concurrent use.
type Client struct {
	cc   ConnConfig
	opts Options
	pool *Pool
	log  logrus.FieldLogger

	// m is the Manager the Client is registered with, if any.
	m *Manager
}

// NewClient creates a Client for the redis instance described by cc. It
// returns once the Pool's initial Handles have been created, see Options.
//
// If the ConnConfig has no password then Options.Auth is used in its place.
func NewClient(ctx context.Context, cc ConnConfig, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	cc = cc.withDefaults()
	if cc.Password == "" {
		cc.Password = opts.Auth
	}

	c := &Client{
		cc:   cc,
		opts: opts,
		log:  opts.Logger.WithField("addr", cc.Addr()),
	}

	dial := opts.Dial
	pool, err := NewPool(ctx, opts.poolConfig(cc), func(ctx context.Context) (Handle, error) {
		return dial(ctx, cc)
	})
	if err != nil {
		return nil, err
	}
	c.pool = pool
	return c, nil
}

// NewClientURL is like NewClient, but takes the redis instance's details from
// a connection URL, see ParseURL. An invalid URL results in an
// ErrConfiguration error without any connection being attempted.
func NewClientURL(ctx context.Context, rawurl string, opts Options) (*Client, error) {
	cc, err := ParseURL(rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, cc, opts)
}

// ConnConfig returns the ConnConfig the Client was created with, with defaults
// filled in.
func (c *Client) ConnConfig() ConnConfig {
	return c.cc
}

// Pool returns the Client's underlying Pool.
func (c *Client) Pool() *Pool {
	return c.pool
}

func (c *Client) withHandle(ctx context.Context, fn func(Handle) error) error {
	h, err := c.pool.Acquire(ctx)
	if err != nil {
		c.log.WithError(err).Warn("unable to acquire redis handle")
		return err
	}
	defer c.pool.Release(h)
	return fn(h)
}

// Do runs the Action on a Handle acquired from the Client's Pool, releasing
// the Handle afterwards. All of Client's command methods go through Do.
func (c *Client) Do(ctx context.Context, a Action) error {
	return c.withHandle(ctx, func(h Handle) error {
		return a.Run(ctx, h)
	})
}

// Execute sends an arbitrary command and returns its reply as given by the
// Handle, see the Handle interface for what forms the reply can take.
func (c *Client) Execute(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	var reply interface{}
	err := c.Do(ctx, Cmd(&reply, cmd, args...))
	return reply, err
}

// Disconnect removes the Client from its Manager, if any, and drains its Pool,
// returning once every Handle has been closed. See Pool.Drain.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.m != nil {
		c.m.remove(c)
	}
	return c.pool.Drain(ctx)
}

////////////////////////////////////////////////////////////////////////////////

// Get returns the value of key, or an ErrNotFound error if it isn't set.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := c.Do(ctx, GetCmd{Key: key, Rcv: &val})
	return val, err
}

// Set sets key to value. If expire is positive the key expires after it.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expire time.Duration) error {
	return c.Do(ctx, SetCmd{Key: key, Value: value, Expire: expire})
}

// SetNX sets key to value only if key isn't already set, returning an
// ErrConditionFailed error otherwise. If expire is positive the key expires
// after it.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expire time.Duration) error {
	return c.Do(ctx, SetNXCmd{Key: key, Value: value, Expire: expire})
}

// Del deletes one or more keys, returning how many existed. Calling Del with no
// keys does nothing.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var n int64
	err := c.Do(ctx, DelCmd{Keys: keys, Rcv: &n})
	return n, err
}

// MGet returns the values of the given keys, with nil for those not set.
func (c *Client) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	var vals [][]byte
	err := c.Do(ctx, MGetCmd{Keys: keys, Rcv: &vals})
	return vals, err
}

// RenameNX renames key to newKey, returning an ErrConditionFailed error if
// newKey already exists.
func (c *Client) RenameNX(ctx context.Context, key, newKey string) error {
	return c.Do(ctx, RenameNXCmd{Key: key, NewKey: newKey})
}

// HGet returns the value of a hash field, or an ErrNotFound error if it isn't
// set.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	var val string
	err := c.Do(ctx, HGetCmd{Key: key, Field: field, Rcv: &val})
	return val, err
}

// HGetAll returns all fields of a hash.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var m map[string]string
	err := c.Do(ctx, HGetAllCmd{Key: key, Rcv: &m})
	return m, err
}

// HMGet returns the values of the given hash fields, with nil for those not
// set.
func (c *Client) HMGet(ctx context.Context, key string, fields ...string) ([][]byte, error) {
	var vals [][]byte
	err := c.Do(ctx, HMGetCmd{Key: key, Fields: fields, Rcv: &vals})
	return vals, err
}

// HMSet sets the given hash fields.
func (c *Client) HMSet(ctx context.Context, key string, fields map[string]interface{}) error {
	return c.Do(ctx, HMSetCmd{Key: key, Fields: fields})
}

// HSetNX sets a hash field only if it isn't already set, returning whether it
// was set.
func (c *Client) HSetNX(ctx context.Context, key, field string, value interface{}) (bool, error) {
	var ok bool
	err := c.Do(ctx, HSetNXCmd{Key: key, Field: field, Value: value, Rcv: &ok})
	return ok, err
}

// HDel deletes the given hash fields, returning how many existed.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	var n int64
	err := c.Do(ctx, HDelCmd{Key: key, Fields: fields, Rcv: &n})
	return n, err
}

// HIncrBy increments the integer value of a hash field by delta, returning the
// new value.
func (c *Client) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	var n int64
	err := c.Do(ctx, HIncrByCmd{Key: key, Field: field, Delta: delta, Rcv: &n})
	return n, err
}

// SAdd adds members to a set, returning how many were new.
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	var n int64
	err := c.Do(ctx, SAddCmd{Key: key, Members: members, Rcv: &n})
	return n, err
}

// SRem removes members from a set, returning how many were present.
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	var n int64
	err := c.Do(ctx, SRemCmd{Key: key, Members: members, Rcv: &n})
	return n, err
}

// SMembers returns all members of a set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := c.Do(ctx, SMembersCmd{Key: key, Rcv: &members})
	return members, err
}

// SRandMember returns a random member of a set, or an ErrNotFound error if the
// set is empty.
func (c *Client) SRandMember(ctx context.Context, key string) (string, error) {
	var member string
	err := c.Do(ctx, SRandMemberCmd{Key: key, Rcv: &member})
	return member, err
}

// SPop removes and returns a random member of a set, or returns an
// ErrNotFound error if the set is empty.
func (c *Client) SPop(ctx context.Context, key string) (string, error) {
	var member string
	err := c.Do(ctx, SPopCmd{Key: key, Rcv: &member})
	return member, err
}

// ZCard returns the number of members of a sorted set.
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := c.Do(ctx, ZCardCmd{Key: key, Rcv: &n})
	return n, err
}

// ZIncrBy increments the score of a sorted set member by delta, returning the
// new score.
func (c *Client) ZIncrBy(ctx context.Context, key string, delta float64, member interface{}) (float64, error) {
	var score float64
	err := c.Do(ctx, ZIncrByCmd{Key: key, Delta: delta, Member: member, Rcv: &score})
	return score, err
}

// ZRange returns the members of a sorted set between the given indexes.
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var members []string
	err := c.Do(ctx, ZRangeCmd{Key: key, Start: start, Stop: stop, Rcv: &members})
	return members, err
}

// ZRangeByScore returns the members of a sorted set with scores between min
// and max.
func (c *Client) ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error) {
	var members []string
	err := c.Do(ctx, ZRangeByScoreCmd{Key: key, Min: min, Max: max, Rcv: &members})
	return members, err
}

// LPush prepends values to a list, returning the list's new length.
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	var n int64
	err := c.Do(ctx, LPushCmd{Key: key, Values: values, Rcv: &n})
	return n, err
}

// RPush appends values to a list, returning the list's new length.
func (c *Client) RPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	var n int64
	err := c.Do(ctx, RPushCmd{Key: key, Values: values, Rcv: &n})
	return n, err
}

// LPop removes and returns the first element of a list, or returns an
// ErrNotFound error if the list is empty.
func (c *Client) LPop(ctx context.Context, key string) (string, error) {
	var val string
	err := c.Do(ctx, LPopCmd{Key: key, Rcv: &val})
	return val, err
}

// LRem removes count occurrences of value from a list, returning how many
// were removed.
func (c *Client) LRem(ctx context.Context, key string, count int64, value interface{}) (int64, error) {
	var n int64
	err := c.Do(ctx, LRemCmd{Key: key, Count: count, Value: value, Rcv: &n})
	return n, err
}

// RPopLPush moves the last element of src to the front of dst and returns it,
// or returns an ErrNotFound error if src is empty.
func (c *Client) RPopLPush(ctx context.Context, src, dst string) (string, error) {
	var val string
	err := c.Do(ctx, RPopLPushCmd{Src: src, Dst: dst, Rcv: &val})
	return val, err
}

// BRPopLPush is like RPopLPush, but waits up to timeout for src to have an
// element. It returns an ErrNotFound error if the timeout is reached.
func (c *Client) BRPopLPush(ctx context.Context, src, dst string, timeout time.Duration) (string, error) {
	var val string
	err := c.Do(ctx, BRPopLPushCmd{Src: src, Dst: dst, Timeout: timeout, Rcv: &val})
	return val, err
}
