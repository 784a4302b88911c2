package rowexec

import (
	"context"
	"io"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/remote"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// buildDmlExecute drains n.Source (if any) up to n.RowCap, turns each
// row into a remote.BulkRequest, and issues them through the bulk
// primitive in batches of e.dmlBatchSize. INSERT...VALUES has no
// source: its rows come straight from n.InsertValueRows.
func (e *Executor) buildDmlExecute(ctx context.Context, n *plan.DmlExecuteNode) (RowIter, error) {
	if e.client == nil {
		return nil, queryerr.ErrExecutionFailed.New("no remote client configured for DmlExecuteNode")
	}

	requests, err := e.buildBulkRequests(ctx, n)
	if err != nil {
		return nil, err
	}

	result, err := e.client.ExecuteBulkAsync(ctx, requests, e.dmlBatchSize, nil)
	if err != nil {
		return nil, queryerr.ErrRemote.New(err.Error())
	}

	out := row.NewQueryRow(n.Entity)
	out.Set(dmlCountColumn(n.Operation), row.NewSimple(int64(result.Succeeded)))
	out.Set("failed", row.NewSimple(int64(result.Failed)))
	return newSliceIter([]*row.QueryRow{out}), nil
}

func dmlCountColumn(op plan.DmlOperation) string {
	switch op {
	case plan.DmlInsert:
		return "inserted"
	case plan.DmlUpdate:
		return "updated"
	case plan.DmlDelete:
		return "deleted"
	}
	return "affected"
}

func (e *Executor) buildBulkRequests(ctx context.Context, n *plan.DmlExecuteNode) ([]remote.BulkRequest, error) {
	opName := bulkOperation(n.Operation)

	if n.Source == nil {
		return e.buildInsertValueRequests(n, opName)
	}

	iter, err := e.Build(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	defer iter.Close(ctx)

	var requests []remote.BulkRequest
	for {
		if n.RowCap > 0 && int64(len(requests)) >= n.RowCap {
			break
		}
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		r, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		req, err := e.buildRequestFromRow(n, r, opName)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (e *Executor) buildInsertValueRequests(n *plan.DmlExecuteNode, opName string) ([]remote.BulkRequest, error) {
	var requests []remote.BulkRequest
	for _, tuple := range n.InsertValueRows {
		if n.RowCap > 0 && int64(len(requests)) >= n.RowCap {
			break
		}
		values := make(map[string]interface{}, len(n.InsertColumns))
		for i, col := range n.InsertColumns {
			if i >= len(tuple) {
				continue
			}
			v, err := e.eval.Evaluate(tuple[i], nil)
			if err != nil {
				return nil, err
			}
			values[strings.ToLower(col)] = v
		}
		requests = append(requests, remote.BulkRequest{Operation: opName, Entity: n.Entity, Values: values})
	}
	return requests, nil
}

// buildRequestFromRow turns one source row into a BulkRequest. For
// INSERT...SELECT, n.SourceColumns map ordinally onto n.InsertColumns.
// For UPDATE/DELETE, the row's primary-key attribute (the entity's
// logical name + "id") supplies ID, and SET clauses compute new values.
func (e *Executor) buildRequestFromRow(n *plan.DmlExecuteNode, r *row.QueryRow, opName string) (remote.BulkRequest, error) {
	req := remote.BulkRequest{Operation: opName, Entity: n.Entity}

	switch n.Operation {
	case plan.DmlInsert:
		values := make(map[string]interface{}, len(n.InsertColumns))
		for i, col := range n.InsertColumns {
			if i >= len(n.SourceColumns) {
				continue
			}
			if v, ok := r.Get(strings.ToLower(n.SourceColumns[i])); ok {
				values[strings.ToLower(col)] = v.Plain()
			}
		}
		req.Values = values
	case plan.DmlUpdate:
		req.ID = primaryKeyValue(n.Entity, r)
		values := make(map[string]interface{}, len(n.SetClauses))
		for _, sc := range n.SetClauses {
			v, err := e.eval.Evaluate(sc.Expr, r)
			if err != nil {
				return req, err
			}
			values[strings.ToLower(sc.Column.Name)] = v
		}
		req.Values = values
	case plan.DmlDelete:
		req.ID = primaryKeyValue(n.Entity, r)
	}
	return req, nil
}

func primaryKeyValue(entity string, r *row.QueryRow) string {
	if v, ok := r.Get(strings.ToLower(entity) + "id"); ok {
		return v.String()
	}
	return ""
}

func bulkOperation(op plan.DmlOperation) string {
	switch op {
	case plan.DmlInsert:
		return "create"
	case plan.DmlUpdate:
		return "update"
	case plan.DmlDelete:
		return "delete"
	}
	return ""
}
