package rowexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func TestExecuteBuffersAllRowsAndInfersColumns(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 4)
	e := New(Options{Client: f})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	result, err := e.Execute(context.Background(), node, "<fetch/>", "account")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.Equal(t, "account", result.EntityLogicalName)
	assert.NotEmpty(t, result.Columns)
}

func TestExecuteStreamingCountsRowsOutput(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 6)
	e := New(Options{Client: f})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	qpc := NewQueryPlanContext()
	iter, err := e.ExecuteStreaming(context.Background(), node, qpc)
	require.NoError(t, err)
	assert.Equal(t, 6, drainAll(t, iter))
	assert.EqualValues(t, 6, qpc.Statistics.RowsOutput())
}

func TestExecuteStreamingWithoutContextSkipsCounting(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 3)
	e := New(Options{Client: f})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	iter, err := e.ExecuteStreaming(context.Background(), node, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, drainAll(t, iter))
}

func TestBuildErrorsOnUnsupportedNode(t *testing.T) {
	e := New(Options{})
	_, err := e.build(context.Background(), nil)
	assert.Error(t, err)
}
