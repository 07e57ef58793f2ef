package pooledredis

import (
	"context"

	"github.com/gomodule/redigo/redis"
)

type redigoHandle struct {
	conn redis.Conn
}

// NewRedigoHandle wraps an existing redigo connection so it can be used as a
// Handle. The connection should not be used directly afterwards.
func NewRedigoHandle(conn redis.Conn) Handle {
	return redigoHandle{conn: conn}
}

func (h redigoHandle) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	return redis.DoContext(h.conn, ctx, cmd, args...)
}

func (h redigoHandle) Err() error {
	return h.conn.Err()
}

func (h redigoHandle) Close() error {
	return h.conn.Close()
}

// RedigoDialer creates Handles using github.com/gomodule/redigo.
type RedigoDialer struct {
	// Network defaults to "tcp".
	Network string

	// DialOptions are passed through to redis.DialContext, after the ones
	// derived from the ConnConfig. They can be used to set timeouts, TLS, etc...
	DialOptions []redis.DialOption
}

// Dial implements the HandleFunc signature.
func (d RedigoDialer) Dial(ctx context.Context, cc ConnConfig) (Handle, error) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}

	opts := []redis.DialOption{redis.DialDatabase(cc.DB)}
	if cc.Username != "" {
		opts = append(opts, redis.DialUsername(cc.Username))
	}
	if cc.Password != "" {
		opts = append(opts, redis.DialPassword(cc.Password))
	}
	opts = append(opts, d.DialOptions...)

	conn, err := redis.DialContext(ctx, network, cc.Addr(), opts...)
	if err != nil {
		return nil, err
	}
	return NewRedigoHandle(conn), nil
}

// DialRedigo is the default HandleFunc. It creates a Handle using redigo with
// default settings.
func DialRedigo(ctx context.Context, cc ConnConfig) (Handle, error) {
	return RedigoDialer{}.Dial(ctx, cc)
}
