package rowexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func TestPrefetchScanYieldsAllSourceRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 20)
	e := New(Options{Client: f, PrefetchBufferSize: 2})

	scan := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.PrefetchScanNode{Source: scan}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 20, drainAll(t, iter))
}

func TestPrefetchScanClosePropagatesToSource(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 5)
	e := New(Options{Client: f})

	scan := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.PrefetchScanNode{Source: scan}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = iter.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, iter.Close(ctx))
}
