// Package driver adapts the root Engine to database/sql/driver, giving
// the query core a second consumption surface beyond direct API calls.
package driver

import (
	"context"
	"database/sql/driver"
	"sync"

	"github.com/joshsmithxrm/ppds-sdk"
)

// Provider resolves a DSN to an already-configured Engine. Unlike the
// teacher's Provider (which resolves to a *sql.Catalog and lets the
// driver build its own analyzer/engine), this module's Engine already
// owns its remote client and pool, so resolving straight to an Engine
// is the natural cut.
type Provider interface {
	Resolve(dsn string) (*ppds.Engine, error)
}

// Driver exposes an Engine as a stdlib SQL driver.
type Driver struct {
	provider Provider

	mu      sync.Mutex
	engines map[string]*ppds.Engine
}

// New returns a driver that resolves DSNs through provider.
func New(provider Provider) *Driver {
	return &Driver{provider: provider, engines: map[string]*ppds.Engine{}}
}

// Open returns a new connection to the database.
func (d *Driver) Open(name string) (driver.Conn, error) {
	conn, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return conn.Connect(context.Background())
}

// OpenConnector resolves dsn to an Engine, reusing one already resolved
// for the same dsn rather than asking the Provider again.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	engine, ok := d.engines[dsn]
	if !ok {
		var err error
		engine, err = d.provider.Resolve(dsn)
		if err != nil {
			return nil, err
		}
		d.engines[dsn] = engine
	}
	return &Connector{driver: d, engine: engine}, nil
}

// Connector represents a driver in a fixed configuration and can create
// any number of equivalent Conns for use by multiple goroutines.
type Connector struct {
	driver *Driver
	engine *ppds.Engine
}

// Driver returns the driver.
func (c *Connector) Driver() driver.Driver { return c.driver }

// Connect returns a connection to the database. Every Conn shares the
// Connector's single Engine; the Engine's own pool is what bounds
// concurrent remote access, not the number of open Conns.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	return &Conn{engine: c.engine}, nil
}
