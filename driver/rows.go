package driver

import (
	"database/sql/driver"
	"io"

	"github.com/joshsmithxrm/ppds-sdk/rowexec"
)

// Rows is an iterator over an already-buffered query result. The root
// Engine's Query always returns a fully-materialized QueryResult, so
// unlike the teacher's Rows (which wraps a live sql.RowIter), this one
// just walks a slice.
type Rows struct {
	result *rowexec.QueryResult
	pos    int
}

// Columns returns the result's column names.
func (r *Rows) Columns() []string {
	if r.result == nil {
		return nil
	}
	return r.result.Columns
}

// Close releases Rows' position; there is no underlying resource to
// release since the result was already fully buffered.
func (r *Rows) Close() error { return nil }

// Next populates dest with the next row's values, in Columns() order.
func (r *Rows) Next(dest []driver.Value) error {
	if r.result == nil || r.pos >= len(r.result.Records) {
		return io.EOF
	}
	rec := r.result.Records[r.pos]
	r.pos++
	for i, col := range r.result.Columns {
		v, _ := rec.Get(col)
		dv, err := toDriverValue(v.Plain())
		if err != nil {
			return err
		}
		dest[i] = dv
	}
	return nil
}
