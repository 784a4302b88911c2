package rowexec

import (
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// projectRecord turns one remote.Record into a QueryRow: every raw
// attribute keeps its rich variant when a FormattedValue is present,
// and every queried virtual column (e.g. "owneridname") is materialized
// from its base attribute's display name, per the virtual-column
// contract carried in e.vc.
func (e *Executor) projectRecord(entity string, rec remote.Record) *row.QueryRow {
	r := row.NewQueryRow(entity)
	for k, v := range rec.Values {
		key := strings.ToLower(k)
		if src, attr, ok := splitAliasedKey(key); ok {
			r.Set(key, row.NewAliased(src, attr, resolveValue(rec, k, v)))
			continue
		}
		r.Set(key, resolveValue(rec, k, v))
	}
	e.remapVirtualColumns(r, rec)
	return r
}

// splitAliasedKey detects a link-entity-qualified key ("contact.fullname")
// as a remote store might return for a joined attribute. Neither the
// generator nor the in-memory fake currently produce these (joins
// aren't executed against the fake), but a real remote client's
// response shape is free to, so the row is still built correctly if
// one ever does.
func splitAliasedKey(key string) (source, attr string, ok bool) {
	idx := strings.Index(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// resolveValue picks the richest QueryValue shape the record supports
// for key: a Lookup when the raw value is a string id with a resolved
// display name, an OptionSet when it's numeric, otherwise Simple.
func resolveValue(rec remote.Record, key string, raw interface{}) row.QueryValue {
	formatted, hasFormatted := rec.FormattedValues[key]
	if !hasFormatted {
		return row.NewSimple(raw)
	}
	switch v := raw.(type) {
	case string:
		return row.NewLookup(v, "", formatted)
	default:
		if iv, ok := toInt(raw); ok {
			return row.NewOptionSet(iv, formatted)
		}
		return row.NewSimple(raw)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// remapVirtualColumns materializes every queried virtual column's
// display-name value onto the row, removing the underlying base
// attribute's raw key when it was never queried in its own right.
func (e *Executor) remapVirtualColumns(r *row.QueryRow, rec remote.Record) {
	for queried, vc := range e.vc {
		outputKey := strings.ToLower(queried)
		if vc.Alias != "" {
			outputKey = strings.ToLower(vc.Alias)
		}
		rawKey := strings.ToLower(vc.BaseColumnName)
		if vc.Alias != "" {
			rawKey = strings.ToLower(vc.Alias)
		}
		r.Set(outputKey, resolveDisplayValue(rec, vc.BaseColumnName))
		if rawKey != outputKey && !vc.BaseColumnExplicitlyQueried {
			delete(r.Values, rawKey)
		}
	}
}

func resolveDisplayValue(rec remote.Record, base string) row.QueryValue {
	base = strings.ToLower(base)
	raw, hasRaw := rec.Values[base]
	if !hasRaw {
		return row.NewSimple(nil)
	}
	return resolveValue(rec, base, raw)
}
