// Package pooledredis puts a bounded connection pool and a typed command
// surface in front of a third-party redis client.
//
// The wire protocol is left entirely to the wrapped client. A Handle is a
// single connection made by that client; the Pool hands Handles out one caller
// at a time, and the Client turns each redis command into an Action which is
// run on an acquired Handle and always released afterwards.
//
// # Creating a Client
//
// Clients are normally created through a Manager, which keeps track of them so
// they can all be disconnected at once:
//
//	m := pooledredis.NewManager()
//	defer m.DisconnectAll(ctx)
//
//	client, err := m.NewClientURL(ctx, "redis://secret@127.0.0.1:6379/2", pooledredis.Options{})
//	if err != nil {
//		// handle error
//	}
//
// Handles are created with the redigo client by default, see the Options
// type for how to change that or tune the Pool.
//
// # Errors
//
// A missing key is reported as an ErrNotFound error, and a conditional write
// which was not applied as an ErrConditionFailed error, so that both can be
// told apart from the command failing outright:
//
//	val, err := client.Get(ctx, "foo")
//	if pooledredis.IsNotFound(err) {
//		// foo isn't set
//	} else if err != nil {
//		// something went wrong
//	}
package pooledredis

import (
	"context"
)

// Handle is a single reusable connection to a redis instance, as provided by
// some third-party client. A Handle is only ever used by one go-routine at a
// time while it's checked out of a Pool.
type Handle interface {
	// Do sends the given command to the redis instance and returns its reply.
	// Replies take the forms used by redigo: []byte for bulk strings, string
	// for status replies, int64 for integers, []interface{} for arrays, and
	// nil for a nil reply. Error replies are returned as errors.
	Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error)

	// Err returns a non-nil error once the Handle is no longer usable, e.g.
	// because its underlying connection was lost. A Pool will close and
	// discard such Handles rather than reuse them.
	Err() error

	// Close closes the Handle and cleans up its resources. No methods may be
	// called after Close.
	Close() error
}

// Transactor may be implemented by a Handle whose client has its own way of
// running a MULTI/EXEC transaction. The returned slice holds the reply (or
// error reply) of each command, in order.
type Transactor interface {
	Transaction(ctx context.Context, cmds []Command) ([]interface{}, error)
}

// Command is a single redis command name along with its arguments.
type Command struct {
	Name string
	Args []interface{}
}

// HandleFunc is a function which returns an initialized, ready-to-be-used
// Handle. A Pool calls its HandleFunc whenever it needs a new Handle, and a
// Client passes it the ConnConfig it was created with.
//
// HandleFuncs like DialRedigo perform AUTH and SELECT on each new connection.
type HandleFunc func(ctx context.Context, cc ConnConfig) (Handle, error)
