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

func TestDmlExecuteInsertValues(t *testing.T) {
	f := remote.NewFake()
	e := New(Options{Client: f})

	node := &plan.DmlExecuteNode{
		Operation:     plan.DmlInsert,
		Entity:        "account",
		InsertColumns: []string{"name"},
		InsertValueRows: [][]ast.Expression{
			{&ast.Literal{Kind: ast.LiteralString, Value: "acme"}},
		},
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	defer iter.Close(context.Background())

	r, err := iter.Next(context.Background())
	require.NoError(t, err)
	inserted, ok := r.Get("inserted")
	require.True(t, ok)
	assert.EqualValues(t, 1, inserted.Plain())
	assert.Len(t, f.Entities["account"], 1)
}

func TestDmlExecuteDeleteFromSource(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 3)
	e := New(Options{Client: f})

	source := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.DmlExecuteNode{
		Operation: plan.DmlDelete,
		Entity:    "account",
		Source:    source,
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	defer iter.Close(context.Background())

	r, err := iter.Next(context.Background())
	require.NoError(t, err)
	deleted, ok := r.Get("deleted")
	require.True(t, ok)
	assert.EqualValues(t, 3, deleted.Plain())
	assert.Empty(t, f.Entities["account"])
}

func TestDmlExecuteRespectsRowCap(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 10)
	e := New(Options{Client: f})

	source := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.DmlExecuteNode{
		Operation: plan.DmlDelete,
		Entity:    "account",
		Source:    source,
		RowCap:    4,
	}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	defer iter.Close(context.Background())

	r, err := iter.Next(context.Background())
	require.NoError(t, err)
	deleted, ok := r.Get("deleted")
	require.True(t, ok)
	assert.EqualValues(t, 4, deleted.Plain())
	assert.Len(t, f.Entities["account"], 6)
}
