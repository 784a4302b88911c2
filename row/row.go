// Package row defines the runtime row and value shapes produced by the
// executor: a QueryRow is a map of column name to a QueryValue sum type
// that preserves the remote store's rich value kinds (lookups,
// optionsets, money, aliased link-entity columns) rather than flattening
// everything to interface{} the way a plain SQL row would.
package row

import "fmt"

// QueryRow is one result record. EntityLogicalName is the primary
// entity the row was produced from (needed by DML execution to route
// updates/deletes back to the right table).
type QueryRow struct {
	Values            map[string]QueryValue
	EntityLogicalName string
}

// NewQueryRow builds an empty row for the given entity.
func NewQueryRow(entity string) *QueryRow {
	return &QueryRow{Values: make(map[string]QueryValue), EntityLogicalName: entity}
}

// Get returns the value for a column, and whether it was present.
func (r *QueryRow) Get(column string) (QueryValue, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Set stores a value for a column, returning the row for chaining.
func (r *QueryRow) Set(column string, v QueryValue) *QueryRow {
	r.Values[column] = v
	return r
}

// Clone returns a shallow copy of the row (new map, same value
// contents); used by ProjectNode and MergeAggregateNode which build new
// rows rather than mutate in place (plan nodes are immutable, but rows
// flowing through them are rebuilt at each stage).
func (r *QueryRow) Clone() *QueryRow {
	out := NewQueryRow(r.EntityLogicalName)
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// QueryValueKind tags the concrete shape of a QueryValue.
type QueryValueKind int

const (
	KindSimple QueryValueKind = iota
	KindLookup
	KindOptionSet
	KindMoney
	KindAliased
)

// QueryValue is a sum type over the remote store's attribute value
// shapes. Exactly one of the per-kind fields is meaningful, selected by
// Kind; Plain returns the plain-Go-value projection used by the
// evaluator for arithmetic/comparison.
type QueryValue struct {
	Kind QueryValueKind

	// KindSimple
	Simple interface{}

	// KindLookup
	LookupID          string
	LookupLogicalName string
	LookupDisplayName string // "" if not resolved

	// KindOptionSet
	OptionValue int
	OptionLabel string // "" if not resolved

	// KindMoney
	MoneyAmount float64

	// KindAliased
	AliasedSourceEntity string
	AliasedAttribute    string
	AliasedInner        *QueryValue
}

// Simple wraps a plain value.
func NewSimple(v interface{}) QueryValue { return QueryValue{Kind: KindSimple, Simple: v} }

// Lookup wraps a lookup (entity reference) value.
func NewLookup(id, logicalName, displayName string) QueryValue {
	return QueryValue{Kind: KindLookup, LookupID: id, LookupLogicalName: logicalName, LookupDisplayName: displayName}
}

// OptionSet wraps a choice/option-set value.
func NewOptionSet(value int, label string) QueryValue {
	return QueryValue{Kind: KindOptionSet, OptionValue: value, OptionLabel: label}
}

// Money wraps a currency amount.
func NewMoney(amount float64) QueryValue { return QueryValue{Kind: KindMoney, MoneyAmount: amount} }

// Aliased wraps a value produced by a link-entity column
// (`sourceentity.attribute`), keeping the inner value's own kind.
func NewAliased(sourceEntity, attribute string, inner QueryValue) QueryValue {
	return QueryValue{Kind: KindAliased, AliasedSourceEntity: sourceEntity, AliasedAttribute: attribute, AliasedInner: &inner}
}

// Plain returns the Go value suitable for arithmetic/comparison: the
// raw value for Simple, the display name or id for Lookup, the label
// (or the numeric value when no label is resolved) for OptionSet, the
// float for Money, and the unwrapped inner value for Aliased.
func (v QueryValue) Plain() interface{} {
	switch v.Kind {
	case KindSimple:
		return v.Simple
	case KindLookup:
		if v.LookupDisplayName != "" {
			return v.LookupDisplayName
		}
		return v.LookupID
	case KindOptionSet:
		if v.OptionLabel != "" {
			return v.OptionLabel
		}
		return v.OptionValue
	case KindMoney:
		return v.MoneyAmount
	case KindAliased:
		if v.AliasedInner != nil {
			return v.AliasedInner.Plain()
		}
		return nil
	default:
		return nil
	}
}

func (v QueryValue) String() string {
	return fmt.Sprintf("%v", v.Plain())
}

// Columns infers an ordered column list from the first row of a result
// set; an empty result has empty columns.
func Columns(rows []*QueryRow) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0].Values))
	for k := range rows[0].Values {
		cols = append(cols, k)
	}
	return cols
}
