package driver

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// toDriverValue coerces a row.QueryValue's plain projection into one of
// the types database/sql/driver.Value accepts (int64, float64, bool,
// []byte, string, time.Time, or nil), the way the teacher's
// convertRowValue narrows a MySQL column's Go value down to its wire
// type.
func toDriverValue(v interface{}) (driver.Value, error) {
	switch t := v.(type) {
	case nil, int64, float64, bool, []byte, string, time.Time:
		return v, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	default:
		return fmt.Sprintf("%v", t), nil
	}
}
