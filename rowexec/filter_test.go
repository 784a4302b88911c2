package rowexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func TestClientFilterPassesOnlyMatchingRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 5)
	e := New(Options{Client: f})

	scan := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.ClientFilterNode{
		Input: scan,
		Condition: &ast.Comparison{
			Op:    ">=",
			Left:  &ast.Column{Name: "seq"},
			Right: &ast.Literal{Kind: ast.LiteralInt, Value: int64(3)},
		},
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 2, drainAll(t, iter)) // ids 3, 4
}

func TestProjectPassesThroughAndComputesColumns(t *testing.T) {
	f := remote.NewFake()
	f.Seed("account", remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"accountid": 1, "revenue": 100.0}})
	e := New(Options{Client: f})

	scan := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.ProjectNode{
		Input: scan,
		Columns: []plan.ProjectColumn{
			{Name: "accountid"},
			{Name: "doubled", Expr: &ast.Binary{Op: "*", Left: &ast.Column{Name: "revenue"}, Right: &ast.Literal{Kind: ast.LiteralFloat, Value: 2.0}}},
		},
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	defer iter.Close(context.Background())

	r, err := iter.Next(context.Background())
	require.NoError(t, err)
	id, ok := r.Get("accountid")
	require.True(t, ok)
	assert.EqualValues(t, 1, id.Plain())
	doubled, ok := r.Get("doubled")
	require.True(t, ok)
	assert.Equal(t, 200.0, doubled.Plain())
	_, hasRevenue := r.Get("revenue")
	assert.False(t, hasRevenue, "project drops columns not named in its column list")
}
