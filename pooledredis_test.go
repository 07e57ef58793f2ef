package pooledredis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	. "testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/mediocregopher/mediocre-go-lib/mrand"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func randKey() string {
	return "pooledredis:" + mrand.Hex(8)
}

func testCtx(tb TB) context.Context {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	tb.Cleanup(cancel)
	return ctx
}

func nullLogger() (*logrus.Logger, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return l, hook
}

////////////////////////////////////////////////////////////////////////////////

// memStore is a tiny in-memory redis, just big enough to service the commands
// Client uses. Each Handle made by dial has its own MULTI state.
type memStore struct {
	l       sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]bool
	zsets   map[string]map[string]float64
	lists   map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		sets:    map[string]map[string]bool{},
		zsets:   map[string]map[string]float64{},
		lists:   map[string][]string{},
	}
}

func (m *memStore) dial(context.Context, ConnConfig) (Handle, error) {
	var queued [][]string
	var inMulti bool
	return NewStubHandle(func(ctx context.Context, args []string) interface{} {
		switch cmd := args[0]; {
		case cmd == "MULTI":
			inMulti, queued = true, nil
			return "OK"
		case cmd == "DISCARD":
			inMulti, queued = false, nil
			return "OK"
		case cmd == "EXEC":
			inMulti = false
			replies := make([]interface{}, len(queued))
			for i := range queued {
				replies[i] = m.do(queued[i])
			}
			queued = nil
			return replies
		case inMulti:
			queued = append(queued, args)
			return "QUEUED"
		default:
			return m.do(args)
		}
	}), nil
}

func (m *memStore) exists(key string) bool {
	_, s := m.strings[key]
	_, h := m.hashes[key]
	_, st := m.sets[key]
	_, z := m.zsets[key]
	_, l := m.lists[key]
	return s || h || st || z || l
}

func (m *memStore) del(key string) bool {
	ok := m.exists(key)
	delete(m.strings, key)
	delete(m.hashes, key)
	delete(m.sets, key)
	delete(m.zsets, key)
	delete(m.lists, key)
	return ok
}

func (m *memStore) do(args []string) interface{} {
	m.l.Lock()
	defer m.l.Unlock()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "PING":
		return "PONG"
	case "GET":
		if v, ok := m.strings[args[0]]; ok {
			return v
		} else if m.exists(args[0]) {
			return redis.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
		}
		return nil
	case "SET":
		nx := false
		for _, a := range args[2:] {
			nx = nx || a == "NX"
		}
		if nx && m.exists(args[0]) {
			return nil
		}
		m.del(args[0])
		m.strings[args[0]] = args[1]
		return "OK"
	case "DEL":
		var n int64
		for _, k := range args {
			if m.del(k) {
				n++
			}
		}
		return n
	case "MGET":
		out := make([][]byte, len(args))
		for i, k := range args {
			if v, ok := m.strings[k]; ok {
				out[i] = []byte(v)
			}
		}
		return out
	case "RENAMENX":
		if !m.exists(args[0]) {
			return redis.Error("ERR no such key")
		} else if m.exists(args[1]) {
			return int64(0)
		}
		m.strings[args[1]] = m.strings[args[0]]
		m.del(args[0])
		return int64(1)

	case "HGET":
		if v, ok := m.hashes[args[0]][args[1]]; ok {
			return v
		}
		return nil
	case "HGETALL":
		return m.hashes[args[0]]
	case "HMGET":
		out := make([][]byte, len(args)-1)
		for i, f := range args[1:] {
			if v, ok := m.hashes[args[0]][f]; ok {
				out[i] = []byte(v)
			}
		}
		return out
	case "HMSET":
		h := m.hashes[args[0]]
		if h == nil {
			h = map[string]string{}
			m.hashes[args[0]] = h
		}
		for i := 1; i+1 < len(args); i += 2 {
			h[args[i]] = args[i+1]
		}
		return "OK"
	case "HSETNX":
		h := m.hashes[args[0]]
		if h == nil {
			h = map[string]string{}
			m.hashes[args[0]] = h
		}
		if _, ok := h[args[1]]; ok {
			return false
		}
		h[args[1]] = args[2]
		return true
	case "HINCRBY":
		h := m.hashes[args[0]]
		if h == nil {
			h = map[string]string{}
			m.hashes[args[0]] = h
		}
		cur, _ := strconv.ParseInt(h[args[1]], 10, 64)
		delta, _ := strconv.ParseInt(args[2], 10, 64)
		h[args[1]] = strconv.FormatInt(cur+delta, 10)
		return cur + delta
	case "HDEL":
		var n int64
		for _, f := range args[1:] {
			if _, ok := m.hashes[args[0]][f]; ok {
				delete(m.hashes[args[0]], f)
				n++
			}
		}
		return n

	case "SADD":
		s := m.sets[args[0]]
		if s == nil {
			s = map[string]bool{}
			m.sets[args[0]] = s
		}
		var n int64
		for _, v := range args[1:] {
			if !s[v] {
				s[v] = true
				n++
			}
		}
		return n
	case "SREM":
		var n int64
		for _, v := range args[1:] {
			if m.sets[args[0]][v] {
				delete(m.sets[args[0]], v)
				n++
			}
		}
		return n
	case "SMEMBERS":
		return m.sortedMembers(args[0])
	case "SRANDMEMBER", "SPOP":
		members := m.sortedMembers(args[0])
		if len(members) == 0 {
			return nil
		}
		if cmd == "SPOP" {
			delete(m.sets[args[0]], members[0])
		}
		return members[0]

	case "ZADD":
		z := m.zsets[args[0]]
		if z == nil {
			z = map[string]float64{}
			m.zsets[args[0]] = z
		}
		for i := 1; i+1 < len(args); i += 2 {
			score, _ := strconv.ParseFloat(args[i], 64)
			z[args[i+1]] = score
		}
		return int64(len(args)-1) / 2
	case "ZINCRBY":
		z := m.zsets[args[0]]
		if z == nil {
			z = map[string]float64{}
			m.zsets[args[0]] = z
		}
		delta, _ := strconv.ParseFloat(args[1], 64)
		z[args[2]] += delta
		return strconv.FormatFloat(z[args[2]], 'f', -1, 64)
	case "ZCARD":
		return int64(len(m.zsets[args[0]]))
	case "ZRANGE":
		members := m.zsorted(args[0])
		start, _ := strconv.Atoi(args[1])
		stop, _ := strconv.Atoi(args[2])
		if stop < 0 {
			stop += len(members)
		}
		if start >= len(members) || start > stop {
			return []string{}
		} else if stop >= len(members) {
			stop = len(members) - 1
		}
		return members[start : stop+1]
	case "ZRANGEBYSCORE":
		min, _ := strconv.ParseFloat(args[1], 64)
		max, _ := strconv.ParseFloat(args[2], 64)
		out := []string{}
		for _, member := range m.zsorted(args[0]) {
			if score := m.zsets[args[0]][member]; score >= min && score <= max {
				out = append(out, member)
			}
		}
		return out

	case "LPUSH":
		for _, v := range args[1:] {
			m.lists[args[0]] = append([]string{v}, m.lists[args[0]]...)
		}
		return int64(len(m.lists[args[0]]))
	case "RPUSH":
		m.lists[args[0]] = append(m.lists[args[0]], args[1:]...)
		return int64(len(m.lists[args[0]]))
	case "LPOP":
		l := m.lists[args[0]]
		if len(l) == 0 {
			return nil
		}
		m.lists[args[0]] = l[1:]
		return l[0]
	case "LREM":
		count, _ := strconv.Atoi(args[1])
		var n int64
		var kept []string
		for _, v := range m.lists[args[0]] {
			if v == args[2] && (count == 0 || int(n) < count) {
				n++
				continue
			}
			kept = append(kept, v)
		}
		m.lists[args[0]] = kept
		return n
	case "RPOPLPUSH", "BRPOPLPUSH":
		l := m.lists[args[0]]
		if len(l) == 0 {
			return nil
		}
		v := l[len(l)-1]
		m.lists[args[0]] = l[:len(l)-1]
		m.lists[args[1]] = append([]string{v}, m.lists[args[1]]...)
		return v

	default:
		return redis.Error(fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(cmd)))
	}
}

func (m *memStore) sortedMembers(key string) []string {
	out := make([]string, 0, len(m.sets[key]))
	for v := range m.sets[key] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (m *memStore) zsorted(key string) []string {
	z := m.zsets[key]
	out := make([]string, 0, len(z))
	for v := range z {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if z[out[i]] != z[out[j]] {
			return z[out[i]] < z[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

////////////////////////////////////////////////////////////////////////////////

// recorder is a HandleFunc whose Handles record every command sent through
// them and reply with a fixed value.
type recorder struct {
	l     sync.Mutex
	calls [][]string
	reply interface{}
}

func (r *recorder) dial(context.Context, ConnConfig) (Handle, error) {
	return NewStubHandle(func(_ context.Context, args []string) interface{} {
		r.l.Lock()
		defer r.l.Unlock()
		r.calls = append(r.calls, args)
		return r.reply
	}), nil
}

func (r *recorder) take() [][]string {
	r.l.Lock()
	defer r.l.Unlock()
	calls := r.calls
	r.calls = nil
	return calls
}
