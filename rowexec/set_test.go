package rowexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func TestDistinctSuppressesDuplicateRows(t *testing.T) {
	f := remote.NewFake()
	f.Seed("account",
		remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"name": "acme"}},
		remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"name": "acme"}},
		remote.Record{EntityLogicalName: "account", Values: map[string]interface{}{"name": "globex"}},
	)
	e := New(Options{Client: f})

	scan := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch distinct="true"><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.DistinctNode{Input: scan}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 2, drainAll(t, iter))
}

func TestConcatenateYieldsEachChildInOrder(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 3)
	e := New(Options{Client: f})

	scanA := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	scanB := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.ConcatenateNode{Inputs: []plan.Node{scanA, scanB}}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 6, drainAll(t, iter)) // 3 + 3, UNION ALL semantics (no dedup)
}
