package pooledredis

import (
	"context"

	"github.com/gomodule/redigo/redis"
)

// Multi runs the given Actions as a single MULTI/EXEC transaction, all on one
// Handle, and decodes each Action's reply into its receiver. The Handle is
// released afterwards, like with Do.
//
// If the transaction could not be queued or executed that error is returned.
// Otherwise the first error from any of the Actions (e.g. an error reply, or
// an ErrNotFound) is returned, though every Action's reply is decoded.
//
// Calling Multi with no Actions does nothing.
func (c *Client) Multi(ctx context.Context, actions ...Action) error {
	if len(actions) == 0 {
		return nil
	}
	return c.withHandle(ctx, func(h Handle) error {
		return runMulti(ctx, h, actions)
	})
}

func runMulti(ctx context.Context, h Handle, actions []Action) error {
	cmds := make([]Command, len(actions))
	for i, a := range actions {
		cmds[i] = a.Command()
	}

	var replies []interface{}
	var err error
	if t, ok := unwrapHandle(h).(Transactor); ok {
		replies, err = t.Transaction(ctx, cmds)
	} else {
		replies, err = doTransaction(ctx, h, cmds)
	}
	if err != nil {
		return err
	} else if len(replies) != len(actions) {
		return ErrDecode.New("transaction returned %d replies for %d commands", len(replies), len(actions))
	}

	var firstErr error
	for i, a := range actions {
		reply, replyErr := replies[i], error(nil)
		if e, ok := reply.(error); ok {
			reply, replyErr = nil, e
		}
		if err := a.decode(reply, replyErr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// doTransaction runs the commands as a transaction using plain Do calls, which
// works for any Handle which is a single connection.
func doTransaction(ctx context.Context, h Handle, cmds []Command) ([]interface{}, error) {
	if _, err := h.Do(ctx, "MULTI"); err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if _, err := h.Do(ctx, cmd.Name, cmd.Args...); err != nil {
			// the error is what's interesting, not whether DISCARD worked
			h.Do(ctx, "DISCARD")
			return nil, err
		}
	}

	reply, err := h.Do(ctx, "EXEC")
	if err != nil {
		return nil, err
	} else if reply == nil {
		return nil, ErrConditionFailed.New("transaction aborted")
	}
	replies, err := redis.Values(reply, nil)
	if err != nil {
		return nil, ErrDecode.Wrap(err, "decoding EXEC reply")
	}
	return replies, nil
}
