package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// Pool hands out scoped Client leases, bounding concurrent acquisitions
// to its capacity.
type Pool struct {
	client   Client
	capacity int
	sem      chan struct{}

	mu      sync.Mutex
	inUse   int
	log     *logrus.Entry
}

// NewPool wraps client with a capacity-bounded lease semaphore.
func NewPool(client Client, capacity int, log *logrus.Entry) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pool{client: client, capacity: capacity, sem: make(chan struct{}, capacity), log: log}
}

// Capacity returns the pool's configured capacity.
func (p *Pool) Capacity() int { return p.capacity }

// Stats is a snapshot of the connection pool's lease diagnostics.
type Stats struct {
	Capacity int
	InUse    int
	Idle     int
}

// Stats reports the pool's current lease counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Capacity: p.capacity, InUse: p.inUse, Idle: p.capacity - p.inUse}
}

// PooledClient is a scoped lease on the underlying Client; Release must
// be called exactly once on every exit path, including cancellation
// mid-iteration.
type PooledClient struct {
	Client
	id       string
	pool     *Pool
	released bool
	mu       sync.Mutex
}

// ID is the lease's correlation id, for log/tracing context.
func (c *PooledClient) ID() string { return c.id }

// Release returns the lease to the pool. Safe to call more than once.
func (c *PooledClient) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	c.pool.mu.Lock()
	c.pool.inUse--
	c.pool.mu.Unlock()
	<-c.pool.sem
	c.pool.log.WithField("lease", c.id).Trace("released pooled client")
}

// GetClientAsync acquires a scoped lease, blocking until capacity is
// available or ctx is cancelled.
func (p *Pool) GetClientAsync(ctx context.Context, tag string) (*PooledClient, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, queryerr.ErrCancelled.New("cancelled while waiting for a pooled client")
	}
	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	id := uuid.NewString()
	p.log.WithFields(logrus.Fields{"lease": id, "tag": tag}).Trace("acquired pooled client")
	return &PooledClient{Client: p.client, id: id, pool: p}, nil
}
