package pooledredis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

type stub struct {
	fn func(context.Context, []string) interface{}

	l      sync.Mutex
	closed bool
}

// NewStubHandle returns a Handle which pretends it is a Handle to a real redis
// instance, but is instead using the given callback to service requests.
//
// On each call to Do the command and its arguments are converted to a
// []string, which is passed to the callback. If the callback returns an error
// it's returned from Do, otherwise the return is converted to the reply form
// described on Handle: strings become []byte, ints become int64, bools become
// 1 or 0, slices become []interface{}, and maps become a flat, key-sorted
// []interface{}.
//
// This can then be used to easily mock a redis instance, like so:
//
//	m := map[string]string{}
//	stub := pooledredis.NewStubHandle(func(_ context.Context, args []string) interface{} {
//		switch args[0] {
//		case "GET":
//			if v, ok := m[args[1]]; ok {
//				return v
//			}
//			return nil
//		case "SET":
//			m[args[1]] = args[2]
//			return "OK"
//		default:
//			return redis.Error(fmt.Sprintf("ERR unknown command %q", args[0]))
//		}
//	})
//
// Error replies should be returned as redigo's redis.Error, so that
// IsRemoteError recognises them.
func NewStubHandle(fn func(ctx context.Context, args []string) interface{}) Handle {
	return &stub{fn: fn}
}

// StubDial returns a HandleFunc which creates a new stub Handle on every call,
// all sharing the same callback. See NewStubHandle.
func StubDial(fn func(ctx context.Context, args []string) interface{}) HandleFunc {
	return func(context.Context, ConnConfig) (Handle, error) {
		return NewStubHandle(fn), nil
	}
}

func (s *stub) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}

	ss := make([]string, 0, len(args)+1)
	ss = append(ss, cmd)
	for _, arg := range args {
		ss = append(ss, stubArg(arg))
	}

	ret := s.fn(ctx, ss)
	if err, ok := ret.(error); ok {
		return nil, err
	}
	return stubReply(ret), nil
}

func (s *stub) Err() error {
	s.l.Lock()
	defer s.l.Unlock()
	if s.closed {
		return errHandleClosed
	}
	return nil
}

func (s *stub) Close() error {
	s.l.Lock()
	defer s.l.Unlock()
	if s.closed {
		return errHandleClosed
	}
	s.closed = true
	return nil
}

func stubArg(arg interface{}) string {
	switch arg := arg.(type) {
	case string:
		return arg
	case []byte:
		return string(arg)
	case int:
		return strconv.Itoa(arg)
	case int64:
		return strconv.FormatInt(arg, 10)
	case float64:
		return strconv.FormatFloat(arg, 'f', -1, 64)
	case bool:
		if arg {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return fmt.Sprint(arg)
	}
}

func stubReply(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return []byte(v)
	case []byte:
		return v
	case int:
		return int64(v)
	case int64:
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case []string:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = []byte(v[i])
		}
		return out
	case [][]byte:
		out := make([]interface{}, len(v))
		for i := range v {
			if v[i] != nil {
				out[i] = v[i]
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			if err, ok := v[i].(error); ok {
				out[i] = err
				continue
			}
			out[i] = stubReply(v[i])
		}
		return out
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]interface{}, 0, len(keys)*2)
		for _, k := range keys {
			out = append(out, []byte(k), []byte(v[k]))
		}
		return out
	default:
		return []byte(fmt.Sprint(v))
	}
}
