// Package ppds wires the query core's stages (parser, planner, executor)
// into a single Engine: parse SQL text, plan it against a remote store,
// and drive the resulting node tree to a buffered result.
package ppds

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/eval"
	"github.com/joshsmithxrm/ppds-sdk/explain"
	"github.com/joshsmithxrm/ppds-sdk/parser"
	"github.com/joshsmithxrm/ppds-sdk/planner"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/rowexec"
	"github.com/joshsmithxrm/ppds-sdk/vars"
)

// Config holds an Engine's tunables. The zero value is a usable, if
// conservative, configuration; LoadConfig fills one in from YAML.
type Config struct {
	// IsReadOnly rejects INSERT/UPDATE/DELETE before they are planned.
	IsReadOnly bool `yaml:"isReadOnly"`

	// UseTdsEndpoint, when true, lets eligible single-entity statements
	// route to the pass-through SQL endpoint instead of FetchXML.
	UseTdsEndpoint bool `yaml:"useTdsEndpoint"`

	// EnablePrefetch wraps non-aggregate scans in a background-draining
	// PrefetchScanNode.
	EnablePrefetch bool `yaml:"enablePrefetch"`

	// DmlRowCap safety-clamps any single DML statement; 0 means
	// unlimited.
	DmlRowCap int64 `yaml:"dmlRowCap"`

	// PoolCapacity bounds concurrent remote-client leases for
	// partitioned aggregates. 0 defers to remote.NewPool's own default.
	PoolCapacity int `yaml:"poolCapacity"`

	PageSize           int `yaml:"pageSize"`
	DmlBatchSize       int `yaml:"dmlBatchSize"`
	PrefetchBufferSize int `yaml:"prefetchBufferSize"`

	// VirtualEntities and ElasticEntities name entities the
	// pass-through endpoint cannot serve; this is remote schema
	// metadata the query core doesn't own, so it's supplied here
	// rather than discovered.
	VirtualEntities []string `yaml:"virtualEntities"`
	ElasticEntities []string `yaml:"elasticEntities"`
}

// Engine ties a remote client, a connection pool, and a variable scope
// together behind a single Query entry point. Call Close once done with
// it.
type Engine struct {
	client remote.Client
	pool   *remote.Pool
	scope  *vars.Scope

	cfg      Config
	readOnly atomic.Bool

	log    *logrus.Entry
	tracer opentracing.Tracer

	mu sync.Mutex
}

// New builds an Engine with custom configuration.
func New(client remote.Client, cfg *Config, log *logrus.Entry) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	capacity := cfg.PoolCapacity
	if capacity < 1 {
		capacity = 1
	}

	e := &Engine{
		client: client,
		pool:   remote.NewPool(client, capacity, log),
		scope:  vars.NewScope(),
		cfg:    *cfg,
		log:    log,
	}
	e.readOnly.Store(cfg.IsReadOnly)
	return e
}

// NewDefault builds an Engine with every tunable left at its default.
func NewDefault(client remote.Client) *Engine {
	return New(client, nil, nil)
}

// Result is Query's return shape: exactly one of Rows or Explain is set,
// unless the statement was a DECLARE/SET, in which case both are nil.
type Result struct {
	Rows    *rowexec.QueryResult
	Explain *explain.QueryPlanDescription
}

// Query parses, plans and executes a single SQL statement.
func (e *Engine) Query(ctx context.Context, sqlText string) (*Result, error) {
	stmt, err := parser.Parse(sqlText)
	if err != nil {
		return nil, err
	}

	if handled, err := e.execDirect(stmt); handled {
		return nil, err
	}

	if err := e.readOnlyCheck(stmt); err != nil {
		return nil, err
	}

	opts := e.plannerOptions(sqlText)
	planResult, err := planner.Plan(stmt, opts)
	if err != nil {
		return nil, err
	}

	if planResult.IsExplain {
		e.log.WithField("entity", planResult.EntityLogicalName).Debug("returning plan description for EXPLAIN")
		return &Result{Explain: explain.FromNode(planResult.Root)}, nil
	}

	for _, w := range planResult.Warnings {
		e.log.Warn(w)
	}

	exec := rowexec.New(rowexec.Options{
		Client:             e.client,
		Pool:               e.pool,
		VirtualColumns:     planResult.VirtualColumns,
		Scope:              e.scope,
		Log:                e.log,
		Tracer:             e.tracer,
		PageSize:           e.cfg.PageSize,
		DmlBatchSize:       e.cfg.DmlBatchSize,
		PrefetchBufferSize: e.cfg.PrefetchBufferSize,
	})

	e.log.WithFields(logrus.Fields{
		"entity": planResult.EntityLogicalName,
	}).Debug("executing plan")

	rows, err := exec.Execute(ctx, planResult.Root, planResult.FetchXml, planResult.EntityLogicalName)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows}, nil
}

// execDirect runs a DECLARE/SET statement against the Engine's variable
// scope, which the planner never sees. handled is false for every other
// statement kind.
func (e *Engine) execDirect(stmt ast.Statement) (handled bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := eval.WithScope(e.scope)
	switch s := stmt.(type) {
	case *ast.Declare:
		var initial interface{}
		if s.Init != nil {
			initial, err = ev.Evaluate(s.Init, nil)
			if err != nil {
				return true, err
			}
		}
		e.scope.Declare(s.Name, initial)
		return true, nil
	case *ast.Set:
		val, err := ev.Evaluate(s.Expr, nil)
		if err != nil {
			return true, err
		}
		return true, e.scope.Set(s.Name, val)
	}
	return false, nil
}

// plannerOptions translates Config into planner.Options for one query.
// TdsExecutor is only set when pass-through routing is enabled: the
// planner treats its mere presence as "eligible", the execution-time
// client is wired separately via rowexec.Options.Client.
func (e *Engine) plannerOptions(sqlText string) planner.Options {
	opts := planner.Options{
		UseTdsEndpoint:  e.cfg.UseTdsEndpoint,
		OriginalSql:     sqlText,
		PoolCapacity:    e.cfg.PoolCapacity,
		EnablePrefetch:  e.cfg.EnablePrefetch,
		DmlRowCap:       e.cfg.DmlRowCap,
		VirtualEntities: toSet(e.cfg.VirtualEntities),
		ElasticEntities: toSet(e.cfg.ElasticEntities),
	}
	if e.cfg.UseTdsEndpoint {
		opts.TdsExecutor = e.client
	}
	return opts
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// readOnlyCheck rejects DML statements when the Engine is in read-only
// mode. Unlike the teacher's plan.IsReadOnly walk over an analyzed tree,
// this module's closed, small statement set makes a direct type-switch
// on the parsed AST the simpler and equally precise check.
func (e *Engine) readOnlyCheck(stmt ast.Statement) error {
	if !e.readOnly.Load() {
		return nil
	}
	switch stmt.(type) {
	case *ast.Insert, *ast.Update, *ast.Delete:
		return queryerr.ErrInvalidRequest.New("engine is read-only")
	}
	return nil
}

// IsReadOnly reports the Engine's current read-only mode.
func (e *Engine) IsReadOnly() bool { return e.readOnly.Load() }

// SetReadOnly toggles read-only mode at runtime.
func (e *Engine) SetReadOnly(ro bool) { e.readOnly.Store(ro) }

// PoolStats exposes the Engine's connection-pool lease diagnostics.
func (e *Engine) PoolStats() remote.Stats { return e.pool.Stats() }

// WithTracer attaches a tracer used for per-node spans during Execute.
func (e *Engine) WithTracer(t opentracing.Tracer) *Engine {
	e.tracer = t
	return e
}

// Close does nothing and returns nil: the Engine's pool holds no
// goroutines or connections to release. The remote Client's own
// lifecycle (connection teardown) is the caller's responsibility, since
// the Engine never owns how the Client was constructed.
func (e *Engine) Close() error {
	return nil
}
