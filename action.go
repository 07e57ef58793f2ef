package pooledredis

import (
	"context"
	"reflect"

	"github.com/gomodule/redigo/redis"
)

// Action is a single redis command which can be run on a Handle, along with
// the knowledge of how to interpret its reply.
//
// The set of Actions is closed: it is made up of CmdAction, for sending any
// command, and the typed command variants in this package (GetCmd, SetCmd,
// etc...), which the Client's methods are built on.
type Action interface {
	// Command returns the command as it will be sent to redis.
	Command() Command

	// Run actually performs the Action using the given Handle.
	Run(ctx context.Context, h Handle) error

	// decode interprets the reply to the Command, or the error returned in its
	// place.
	decode(reply interface{}, err error) error
}

func runAction(ctx context.Context, h Handle, a Action) error {
	cmd := a.Command()
	reply, err := h.Do(ctx, cmd.Name, cmd.Args...)
	return a.decode(reply, err)
}

////////////////////////////////////////////////////////////////////////////////

// MaybeNil is a type which wraps a receiver. If the reply to an Action using
// MaybeNil as its receiver is nil then Nil is set to true and Rcv is left
// untouched. Otherwise the reply is decoded into Rcv as normal.
//
//	mn := pooledredis.MaybeNil{Rcv: new(string)}
//	err := client.Do(ctx, pooledredis.Cmd(&mn, "GET", "foo"))
//	if err != nil {
//		// handle error
//	} else if mn.Nil {
//		// foo isn't set
//	}
type MaybeNil struct {
	Nil bool
	Rcv interface{}
}

// decodeInto decodes a reply into the given receiver, using redigo's reply
// conversion functions. A nil receiver discards the reply. A nil reply leaves
// the receiver holding its zero value, unless the receiver is a *MaybeNil.
func decodeInto(rcv, reply interface{}) error {
	// typed nil pointers, e.g. an unset Rcv field, discard the reply as well
	if v := reflect.ValueOf(rcv); v.Kind() == reflect.Ptr && v.IsNil() {
		return nil
	}

	var err error
	switch rcv := rcv.(type) {
	case nil:
	case *MaybeNil:
		if reply == nil {
			rcv.Nil = true
			return nil
		}
		rcv.Nil = false
		return decodeInto(rcv.Rcv, reply)
	case *interface{}:
		*rcv = reply
	case *string:
		*rcv, err = redis.String(reply, nil)
	case *[]byte:
		*rcv, err = redis.Bytes(reply, nil)
	case *int:
		*rcv, err = redis.Int(reply, nil)
	case *int64:
		*rcv, err = redis.Int64(reply, nil)
	case *float64:
		*rcv, err = redis.Float64(reply, nil)
	case *bool:
		*rcv, err = redis.Bool(reply, nil)
	case *[]string:
		*rcv, err = redis.Strings(reply, nil)
	case *[][]byte:
		*rcv, err = redis.ByteSlices(reply, nil)
	case *[]interface{}:
		*rcv, err = redis.Values(reply, nil)
	case *map[string]string:
		*rcv, err = redis.StringMap(reply, nil)
	default:
		return ErrDecode.New("unsupported receiver type %T", rcv)
	}

	if err == redis.ErrNil {
		// the receiver was already set to its zero value by the conversion
		return nil
	} else if err != nil {
		return ErrDecode.Wrap(err, "decoding reply into %T", rcv)
	}
	return nil
}

// CmdAction is an Action which sends an arbitrary command and decodes its
// reply into a receiver. It is created using Cmd.
type CmdAction struct {
	Cmd Command
	Rcv interface{}
}

// Cmd is used to perform a redis command and retrieve a result. It should not
// be passed into Do more than once.
//
// If the receiver value of Cmd is nil then the result is discarded. Otherwise
// the receiver must be a pointer to one of: string, []byte, int, int64,
// float64, bool, []string, [][]byte, []interface{}, map[string]string,
// interface{} (which receives the reply as-is), or a MaybeNil wrapping one of
// those.
//
//	// Set foo to 1
//	err := client.Do(ctx, pooledredis.Cmd(nil, "SET", "foo", 1))
//
//	// Get foo's value
//	var fooVal string
//	err := client.Do(ctx, pooledredis.Cmd(&fooVal, "GET", "foo"))
//
// Error replies from redis are returned unchanged, see IsRemoteError.
func Cmd(rcv interface{}, cmd string, args ...interface{}) CmdAction {
	return CmdAction{
		Cmd: Command{Name: cmd, Args: args},
		Rcv: rcv,
	}
}

// Command implements the method for the Action interface.
func (c CmdAction) Command() Command { return c.Cmd }

// Run implements the method for the Action interface.
func (c CmdAction) Run(ctx context.Context, h Handle) error {
	return runAction(ctx, h, c)
}

func (c CmdAction) decode(reply interface{}, err error) error {
	if err != nil {
		return err
	}
	return decodeInto(c.Rcv, reply)
}
