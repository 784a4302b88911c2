// Package planner turns a parsed statement into an executable plan
// tree: it decides between pass-through SQL, a single FetchXML scan, a
// parallel partitioned aggregate, client-side filtering/projection, DML
// execution, and UNION/DISTINCT composition.
package planner

import (
	"time"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

// partitionThreshold is the estimated-row-count floor above which an
// aggregate becomes a candidate for date-range partitioning.
const partitionThreshold = 50_000

// Options configures the planning decision tree.
type Options struct {
	// MaxRows overrides any TOP present in the statement (UI/preview
	// caps). Nil means no override.
	MaxRows *int64

	// UseTdsEndpoint, OriginalSql and TdsExecutor together gate
	// pass-through SQL routing. All three must be set for a TdsScan to
	// be considered; TdsExecutor is consulted only for its presence
	// here, the execution-time client is wired in separately.
	UseTdsEndpoint bool
	OriginalSql    string
	TdsExecutor    remote.Client

	// EstimatedRecordCount, MinDate and MaxDate feed the partitioned
	// aggregate decision; nil means "absent" for each.
	EstimatedRecordCount *int64
	MinDate              *time.Time
	MaxDate              *time.Time
	PoolCapacity         int

	// EnablePrefetch wraps non-aggregate scans in a PrefetchScanNode.
	EnablePrefetch bool

	// DmlRowCap safety-clamps DmlExecuteNode; 0 means unlimited.
	DmlRowCap int64

	// VirtualEntities and ElasticEntities name entities the
	// pass-through endpoint cannot serve. This is remote schema
	// metadata the query core doesn't own, so the caller supplies it.
	VirtualEntities map[string]bool
	ElasticEntities map[string]bool
}

// Result is Plan's full output: the executable tree plus the
// generator's side output needed to run it.
type Result struct {
	Root              plan.Node
	FetchXml          string
	VirtualColumns    map[string]fetchxml.VirtualColumn
	EntityLogicalName string
	EntityAlias       string
	Warnings          []string

	// IsExplain is true when the statement was wrapped in EXPLAIN; the
	// caller should format Root instead of executing it.
	IsExplain bool
}

// Plan builds an executable plan tree for stmt.
func Plan(stmt ast.Statement, opts Options) (*Result, error) {
	if ex, ok := stmt.(*ast.Explain); ok {
		inner, err := Plan(ex.Inner, opts)
		if err != nil {
			return nil, err
		}
		inner.IsExplain = true
		return inner, nil
	}

	if entity, ok := primaryEntity(stmt); ok && tdsEligible(opts, entity) {
		return planTdsScan(opts, entity), nil
	}

	switch s := stmt.(type) {
	case *ast.Insert:
		return planInsert(s, opts)
	case *ast.Update:
		return planUpdate(s, opts)
	case *ast.Delete:
		return planDelete(s, opts)
	case *ast.Union:
		return planUnion(s, opts)
	case *ast.Select:
		return planSelect(s, opts)
	case *ast.Declare, *ast.Set:
		return nil, queryerr.ErrInvalidRequest.New("DECLARE/SET are executed directly, not planned")
	}
	return nil, queryerr.ErrInvalidRequest.New("unsupported statement type for planning")
}

func primaryEntity(stmt ast.Statement) (string, bool) {
	switch s := stmt.(type) {
	case *ast.Select:
		return s.From.Name, true
	case *ast.Insert:
		return s.Table, true
	case *ast.Update:
		return s.Table.Name, true
	case *ast.Delete:
		return s.Table.Name, true
	}
	return "", false
}

func tdsEligible(opts Options, entity string) bool {
	if !opts.UseTdsEndpoint || opts.TdsExecutor == nil || opts.OriginalSql == "" {
		return false
	}
	return tdsCompatibleEntity(entity, opts)
}

// tdsCompatibleEntity reports whether entity can be served by the
// pass-through SQL endpoint: not a virtual or elastic entity, and not
// the activityparty intersect (which the passthrough endpoint never
// exposes).
func tdsCompatibleEntity(entity string, opts Options) bool {
	lower := lowerEntity(entity)
	if lower == "activityparty" {
		return false
	}
	if opts.VirtualEntities != nil && opts.VirtualEntities[lower] {
		return false
	}
	if opts.ElasticEntities != nil && opts.ElasticEntities[lower] {
		return false
	}
	return true
}

func planTdsScan(opts Options, entity string) *Result {
	return &Result{
		Root: &plan.TdsScan{
			Sql:     opts.OriginalSql,
			Entity:  entity,
			MaxRows: opts.MaxRows,
			Rows:    plan.UnknownRows,
		},
		EntityLogicalName: entity,
	}
}
