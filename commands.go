package pooledredis

import (
	"context"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"
)

// This file holds the typed command variants which the Client's methods use.
// Each one builds its command from its fields and knows what its reply means;
// they can also be passed to Client.Do or Multi directly.

func keyArgs(first interface{}, rest []string) []interface{} {
	args := make([]interface{}, 0, len(rest)+1)
	if first != nil {
		args = append(args, first)
	}
	for _, s := range rest {
		args = append(args, s)
	}
	return args
}

// expireArgs returns the EX/PX flag for the given expiry, or nothing if the
// expiry isn't positive.
func expireArgs(d time.Duration) []interface{} {
	switch {
	case d <= 0:
		return nil
	case d%time.Second == 0:
		return []interface{}{"EX", int64(d / time.Second)}
	default:
		// redis rejects PX 0, so round up to the next millisecond
		return []interface{}{"PX", int64((d + time.Millisecond - 1) / time.Millisecond)}
	}
}

// timeoutSecs rounds a blocking command's timeout up to whole seconds, keeping
// 0 as "block forever".
func timeoutSecs(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// decodeRequired decodes a reply which must not be nil, returning an
// ErrNotFound error for the key if it is.
func decodeRequired(key string, rcv, reply interface{}, err error) error {
	if err != nil {
		return err
	} else if reply == nil {
		return notFound(key)
	}
	return decodeInto(rcv, reply)
}

////////////////////////////////////////////////////////////////////////////////
// keys

// GetCmd is GET. A missing key results in an ErrNotFound error.
type GetCmd struct {
	Key string
	Rcv *string
}

// Command implements the method for the Action interface.
func (c GetCmd) Command() Command {
	return Command{Name: "GET", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c GetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c GetCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Key, c.Rcv, reply, err)
}

// SetCmd is SET, with an EX or PX flag appended only if Expire is positive.
type SetCmd struct {
	Key    string
	Value  interface{}
	Expire time.Duration
}

// Command implements the method for the Action interface.
func (c SetCmd) Command() Command {
	args := append([]interface{}{c.Key, c.Value}, expireArgs(c.Expire)...)
	return Command{Name: "SET", Args: args}
}

// Run implements the method for the Action interface.
func (c SetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SetCmd) decode(_ interface{}, err error) error { return err }

// SetNXCmd is SET with the NX flag, and an EX or PX flag if Expire is
// positive. If the key already exists the result is an ErrConditionFailed
// error, even though redis itself reported no error.
type SetNXCmd struct {
	Key    string
	Value  interface{}
	Expire time.Duration
}

// Command implements the method for the Action interface.
func (c SetNXCmd) Command() Command {
	args := append([]interface{}{c.Key, c.Value, "NX"}, expireArgs(c.Expire)...)
	return Command{Name: "SET", Args: args}
}

// Run implements the method for the Action interface.
func (c SetNXCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SetNXCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	if s, _ := redis.String(reply, nil); s != "OK" {
		return conditionFailed(c.Key, "NX failed")
	}
	return nil
}

// DelCmd is DEL. Rcv, if set, receives the number of keys removed.
type DelCmd struct {
	Keys []string
	Rcv  *int64
}

// Command implements the method for the Action interface.
func (c DelCmd) Command() Command {
	return Command{Name: "DEL", Args: keyArgs(nil, c.Keys)}
}

// Run implements the method for the Action interface.
func (c DelCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c DelCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// MGetCmd is MGET. Rcv receives one element per key, nil for missing keys.
type MGetCmd struct {
	Keys []string
	Rcv  *[][]byte
}

// Command implements the method for the Action interface.
func (c MGetCmd) Command() Command {
	return Command{Name: "MGET", Args: keyArgs(nil, c.Keys)}
}

// Run implements the method for the Action interface.
func (c MGetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c MGetCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// RenameNXCmd is RENAMENX. If NewKey already exists the result is an
// ErrConditionFailed error, since redis refuses to overwrite it.
type RenameNXCmd struct {
	Key, NewKey string
}

// Command implements the method for the Action interface.
func (c RenameNXCmd) Command() Command {
	return Command{Name: "RENAMENX", Args: []interface{}{c.Key, c.NewKey}}
}

// Run implements the method for the Action interface.
func (c RenameNXCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c RenameNXCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	ok, err := redis.Bool(reply, nil)
	if err != nil {
		return ErrDecode.Wrap(err, "decoding RENAMENX reply")
	} else if !ok {
		return conditionFailed(c.NewKey, "refusing to overwrite")
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// hashes

// HGetCmd is HGET. A missing key or field results in an ErrNotFound error.
type HGetCmd struct {
	Key, Field string
	Rcv        *string
}

// Command implements the method for the Action interface.
func (c HGetCmd) Command() Command {
	return Command{Name: "HGET", Args: []interface{}{c.Key, c.Field}}
}

// Run implements the method for the Action interface.
func (c HGetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HGetCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Key, c.Rcv, reply, err)
}

// HGetAllCmd is HGETALL. A missing key results in an empty map.
type HGetAllCmd struct {
	Key string
	Rcv *map[string]string
}

// Command implements the method for the Action interface.
func (c HGetAllCmd) Command() Command {
	return Command{Name: "HGETALL", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c HGetAllCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HGetAllCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// HMGetCmd is HMGET. Rcv receives one element per field, nil for missing
// fields.
type HMGetCmd struct {
	Key    string
	Fields []string
	Rcv    *[][]byte
}

// Command implements the method for the Action interface.
func (c HMGetCmd) Command() Command {
	return Command{Name: "HMGET", Args: keyArgs(c.Key, c.Fields)}
}

// Run implements the method for the Action interface.
func (c HMGetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HMGetCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// HMSetCmd is HMSET. Fields are sent sorted by name.
type HMSetCmd struct {
	Key    string
	Fields map[string]interface{}
}

// Command implements the method for the Action interface.
func (c HMSetCmd) Command() Command {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, 0, 1+len(names)*2)
	args = append(args, c.Key)
	for _, name := range names {
		args = append(args, name, c.Fields[name])
	}
	return Command{Name: "HMSET", Args: args}
}

// Run implements the method for the Action interface.
func (c HMSetCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HMSetCmd) decode(_ interface{}, err error) error { return err }

// HSetNXCmd is HSETNX. Rcv, if set, receives whether the field was set.
type HSetNXCmd struct {
	Key, Field string
	Value      interface{}
	Rcv        *bool
}

// Command implements the method for the Action interface.
func (c HSetNXCmd) Command() Command {
	return Command{Name: "HSETNX", Args: []interface{}{c.Key, c.Field, c.Value}}
}

// Run implements the method for the Action interface.
func (c HSetNXCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HSetNXCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// HDelCmd is HDEL. Rcv, if set, receives the number of fields removed.
type HDelCmd struct {
	Key    string
	Fields []string
	Rcv    *int64
}

// Command implements the method for the Action interface.
func (c HDelCmd) Command() Command {
	return Command{Name: "HDEL", Args: keyArgs(c.Key, c.Fields)}
}

// Run implements the method for the Action interface.
func (c HDelCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HDelCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// HIncrByCmd is HINCRBY. Rcv, if set, receives the new value.
type HIncrByCmd struct {
	Key, Field string
	Delta      int64
	Rcv        *int64
}

// Command implements the method for the Action interface.
func (c HIncrByCmd) Command() Command {
	return Command{Name: "HINCRBY", Args: []interface{}{c.Key, c.Field, c.Delta}}
}

// Run implements the method for the Action interface.
func (c HIncrByCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c HIncrByCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

////////////////////////////////////////////////////////////////////////////////
// sets

// SAddCmd is SADD. Rcv, if set, receives the number of members added.
type SAddCmd struct {
	Key     string
	Members []interface{}
	Rcv     *int64
}

// Command implements the method for the Action interface.
func (c SAddCmd) Command() Command {
	return Command{Name: "SADD", Args: append([]interface{}{c.Key}, c.Members...)}
}

// Run implements the method for the Action interface.
func (c SAddCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SAddCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// SRemCmd is SREM. Rcv, if set, receives the number of members removed.
type SRemCmd struct {
	Key     string
	Members []interface{}
	Rcv     *int64
}

// Command implements the method for the Action interface.
func (c SRemCmd) Command() Command {
	return Command{Name: "SREM", Args: append([]interface{}{c.Key}, c.Members...)}
}

// Run implements the method for the Action interface.
func (c SRemCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SRemCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// SMembersCmd is SMEMBERS.
type SMembersCmd struct {
	Key string
	Rcv *[]string
}

// Command implements the method for the Action interface.
func (c SMembersCmd) Command() Command {
	return Command{Name: "SMEMBERS", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c SMembersCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SMembersCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// SRandMemberCmd is SRANDMEMBER with no count. An empty or missing set results
// in an ErrNotFound error.
type SRandMemberCmd struct {
	Key string
	Rcv *string
}

// Command implements the method for the Action interface.
func (c SRandMemberCmd) Command() Command {
	return Command{Name: "SRANDMEMBER", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c SRandMemberCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SRandMemberCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Key, c.Rcv, reply, err)
}

// SPopCmd is SPOP with no count. An empty or missing set results in an
// ErrNotFound error.
type SPopCmd struct {
	Key string
	Rcv *string
}

// Command implements the method for the Action interface.
func (c SPopCmd) Command() Command {
	return Command{Name: "SPOP", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c SPopCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c SPopCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Key, c.Rcv, reply, err)
}

////////////////////////////////////////////////////////////////////////////////
// sorted sets

// ZCardCmd is ZCARD.
type ZCardCmd struct {
	Key string
	Rcv *int64
}

// Command implements the method for the Action interface.
func (c ZCardCmd) Command() Command {
	return Command{Name: "ZCARD", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c ZCardCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c ZCardCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// ZIncrByCmd is ZINCRBY. Rcv, if set, receives the new score.
type ZIncrByCmd struct {
	Key    string
	Delta  float64
	Member interface{}
	Rcv    *float64
}

// Command implements the method for the Action interface.
func (c ZIncrByCmd) Command() Command {
	return Command{Name: "ZINCRBY", Args: []interface{}{c.Key, c.Delta, c.Member}}
}

// Run implements the method for the Action interface.
func (c ZIncrByCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c ZIncrByCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// ZRangeCmd is ZRANGE by index.
type ZRangeCmd struct {
	Key         string
	Start, Stop int64
	Rcv         *[]string
}

// Command implements the method for the Action interface.
func (c ZRangeCmd) Command() Command {
	return Command{Name: "ZRANGE", Args: []interface{}{c.Key, c.Start, c.Stop}}
}

// Run implements the method for the Action interface.
func (c ZRangeCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c ZRangeCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// ZRangeByScoreCmd is ZRANGEBYSCORE. Min and Max are passed as-is, so they may
// use redis' "(1" and "-inf" forms.
type ZRangeByScoreCmd struct {
	Key      string
	Min, Max string
	Rcv      *[]string
}

// Command implements the method for the Action interface.
func (c ZRangeByScoreCmd) Command() Command {
	return Command{Name: "ZRANGEBYSCORE", Args: []interface{}{c.Key, c.Min, c.Max}}
}

// Run implements the method for the Action interface.
func (c ZRangeByScoreCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c ZRangeByScoreCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

////////////////////////////////////////////////////////////////////////////////
// lists

// LPushCmd is LPUSH. Rcv, if set, receives the new length of the list.
type LPushCmd struct {
	Key    string
	Values []interface{}
	Rcv    *int64
}

// Command implements the method for the Action interface.
func (c LPushCmd) Command() Command {
	return Command{Name: "LPUSH", Args: append([]interface{}{c.Key}, c.Values...)}
}

// Run implements the method for the Action interface.
func (c LPushCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c LPushCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// RPushCmd is RPUSH. Rcv, if set, receives the new length of the list.
type RPushCmd struct {
	Key    string
	Values []interface{}
	Rcv    *int64
}

// Command implements the method for the Action interface.
func (c RPushCmd) Command() Command {
	return Command{Name: "RPUSH", Args: append([]interface{}{c.Key}, c.Values...)}
}

// Run implements the method for the Action interface.
func (c RPushCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c RPushCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// LPopCmd is LPOP. An empty or missing list results in an ErrNotFound error.
type LPopCmd struct {
	Key string
	Rcv *string
}

// Command implements the method for the Action interface.
func (c LPopCmd) Command() Command {
	return Command{Name: "LPOP", Args: []interface{}{c.Key}}
}

// Run implements the method for the Action interface.
func (c LPopCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c LPopCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Key, c.Rcv, reply, err)
}

// LRemCmd is LREM. Rcv, if set, receives the number of elements removed.
type LRemCmd struct {
	Key   string
	Count int64
	Value interface{}
	Rcv   *int64
}

// Command implements the method for the Action interface.
func (c LRemCmd) Command() Command {
	return Command{Name: "LREM", Args: []interface{}{c.Key, c.Count, c.Value}}
}

// Run implements the method for the Action interface.
func (c LRemCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c LRemCmd) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}

// RPopLPushCmd is RPOPLPUSH. An empty or missing source list results in an
// ErrNotFound error.
type RPopLPushCmd struct {
	Src, Dst string
	Rcv      *string
}

// Command implements the method for the Action interface.
func (c RPopLPushCmd) Command() Command {
	return Command{Name: "RPOPLPUSH", Args: []interface{}{c.Src, c.Dst}}
}

// Run implements the method for the Action interface.
func (c RPopLPushCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c RPopLPushCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Src, c.Rcv, reply, err)
}

// BRPopLPushCmd is BRPOPLPUSH. Timeout is rounded up to whole seconds, and if
// it's not positive the command blocks until an element is available. If the
// timeout is reached the result is an ErrNotFound error.
//
// The Handle is held for as long as the command blocks.
type BRPopLPushCmd struct {
	Src, Dst string
	Timeout  time.Duration
	Rcv      *string
}

// Command implements the method for the Action interface.
func (c BRPopLPushCmd) Command() Command {
	return Command{
		Name: "BRPOPLPUSH",
		Args: []interface{}{c.Src, c.Dst, timeoutSecs(c.Timeout)},
	}
}

// Run implements the method for the Action interface.
func (c BRPopLPushCmd) Run(ctx context.Context, h Handle) error { return runAction(ctx, h, c) }

func (c BRPopLPushCmd) decode(reply interface{}, err error) error {
	return decodeRequired(c.Src, c.Rcv, reply, err)
}
