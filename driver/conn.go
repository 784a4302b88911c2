package driver

import (
	"database/sql/driver"

	"github.com/joshsmithxrm/ppds-sdk"
	"github.com/joshsmithxrm/ppds-sdk/parser"
)

// Conn is a connection to an Engine.
type Conn struct {
	engine *ppds.Engine
}

// Prepare validates the query's syntax and returns a statement. Unlike
// the teacher's Prepare (which runs a full analyze pass against a
// catalog), there is no schema to bind against here, so parsing is the
// whole of "preparing".
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	if _, err := parser.Parse(query); err != nil {
		return nil, err
	}
	return &Stmt{conn: c, queryStr: query}, nil
}

// Close does nothing: the Conn holds no per-connection state of its
// own, only a reference to the shared Engine.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a no-op transaction. The query core has no transaction
// concept (spec.md never names one), so this only satisfies
// database/sql's requirement that Conn implement driver.Conn.
func (c *Conn) Begin() (driver.Tx, error) {
	return noopTx{}, nil
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
