package driver

import (
	"errors"

	"github.com/joshsmithxrm/ppds-sdk/rowexec"
)

// Result is the outcome of an Exec call against a DML statement.
type Result struct {
	rows *rowexec.QueryResult
}

// LastInsertId is never supported: the remote store assigns its own
// entity ids (GUIDs), there is no auto-increment concept to surface.
func (r *Result) LastInsertId() (int64, error) {
	return 0, errors.New("driver: LastInsertId is not supported")
}

// RowsAffected reads the inserted/updated/deleted count off the single
// summary row a DmlExecuteNode produces.
func (r *Result) RowsAffected() (int64, error) {
	if r.rows == nil || len(r.rows.Records) == 0 {
		return 0, nil
	}
	rec := r.rows.Records[0]
	for _, col := range []string{"inserted", "updated", "deleted", "affected"} {
		if v, ok := rec.Get(col); ok {
			if n, ok := v.Plain().(int64); ok {
				return n, nil
			}
		}
	}
	return 0, nil
}
