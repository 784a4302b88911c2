package driver

import (
	"context"
	"database/sql/driver"
	"errors"
)

// ErrBindingsUnsupported is returned when a caller passes placeholder
// arguments: this dialect's only parameter mechanism is the @variable
// scope reached through DECLARE/SET/SELECT, not driver bind arguments.
var ErrBindingsUnsupported = errors.New("driver: bind arguments are not supported, use DECLARE/SET @variables instead")

// Stmt is a prepared statement: its query text, reusable across Exec/Query
// calls against the same Conn.
type Stmt struct {
	conn     *Conn
	queryStr string
}

// Close does nothing: Stmt holds no resources beyond its query text.
func (s *Stmt) Close() error { return nil }

// NumInput reports that this driver accepts no placeholder parameters.
func (s *Stmt) NumInput() int { return 0 }

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBindingsUnsupported
	}
	return s.exec(context.Background())
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBindingsUnsupported
	}
	return s.query(context.Background())
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBindingsUnsupported
	}
	return s.exec(ctx)
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBindingsUnsupported
	}
	return s.query(ctx)
}

func (s *Stmt) exec(ctx context.Context) (driver.Result, error) {
	res, err := s.conn.engine.Query(ctx, s.queryStr)
	if err != nil {
		return nil, err
	}
	return &Result{rows: res.Rows}, nil
}

func (s *Stmt) query(ctx context.Context) (driver.Rows, error) {
	res, err := s.conn.engine.Query(ctx, s.queryStr)
	if err != nil {
		return nil, err
	}
	if res.Rows == nil {
		return &Rows{}, nil
	}
	return &Rows{result: res.Rows}, nil
}
