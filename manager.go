package pooledredis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager keeps track of a set of Clients so that they can all be disconnected
// at once, e.g. when the application shuts down or a test finishes. An
// application would normally create one Manager and create all its Clients
// through it.
//
// Manager is safe for concurrent use. The zero value is ready to use.
type Manager struct {
	l       sync.Mutex
	clients []*Client
}

// NewManager initializes and returns an empty Manager.
func NewManager() *Manager {
	return new(Manager)
}

// NewClient calls NewClient and registers the new Client with the Manager.
func (m *Manager) NewClient(ctx context.Context, cc ConnConfig, opts Options) (*Client, error) {
	c, err := NewClient(ctx, cc, opts)
	if err != nil {
		return nil, err
	}
	m.register(c)
	return c, nil
}

// NewClientURL calls NewClientURL and registers the new Client with the
// Manager.
func (m *Manager) NewClientURL(ctx context.Context, rawurl string, opts Options) (*Client, error) {
	c, err := NewClientURL(ctx, rawurl, opts)
	if err != nil {
		return nil, err
	}
	m.register(c)
	return c, nil
}

func (m *Manager) register(c *Client) {
	m.l.Lock()
	defer m.l.Unlock()
	c.m = m
	m.clients = append(m.clients, c)
}

func (m *Manager) remove(c *Client) {
	m.l.Lock()
	defer m.l.Unlock()
	for i := range m.clients {
		if m.clients[i] == c {
			m.clients = append(m.clients[:i], m.clients[i+1:]...)
			return
		}
	}
}

// Clients returns the Clients currently registered, in the order they were
// created.
func (m *Manager) Clients() []*Client {
	m.l.Lock()
	defer m.l.Unlock()
	return append([]*Client(nil), m.clients...)
}

// Len returns the number of Clients currently registered.
func (m *Manager) Len() int {
	m.l.Lock()
	defer m.l.Unlock()
	return len(m.clients)
}

// DisconnectAll unregisters every Client and disconnects them all
// concurrently, returning once they're all done. The first error encountered
// is returned, but every Client is disconnected regardless.
//
// Calling DisconnectAll on a Manager with no Clients does nothing.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.l.Lock()
	clients := m.clients
	m.clients = nil
	m.l.Unlock()

	var eg errgroup.Group
	for _, c := range clients {
		c := c
		eg.Go(func() error {
			return c.pool.Drain(ctx)
		})
	}
	return eg.Wait()
}
