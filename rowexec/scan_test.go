package rowexec

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func seedAccounts(f *remote.Fake, n int) {
	for i := 0; i < n; i++ {
		f.Seed("account", remote.Record{
			EntityLogicalName: "account",
			Values:            map[string]interface{}{"accountid": "id-" + itoa(i), "name": "acc" + itoa(i), "seq": i},
		})
	}
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

func drainAll(t *testing.T, it RowIter) int {
	t.Helper()
	count := 0
	for {
		_, err := it.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	require.NoError(t, it.Close(context.Background()))
	return count
}

func TestFetchXmlScanSinglePage(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 5)
	e := New(Options{Client: f})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 5, drainAll(t, iter))
}

func TestFetchXmlScanRespectsMaxRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 10)
	e := New(Options{Client: f})

	max := int64(3)
	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true, MaxRows: &max}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 3, drainAll(t, iter))
}

func TestFetchXmlScanPagesWhenAutoPage(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 10)
	e := New(Options{Client: f, PageSize: 4})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: true}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 10, drainAll(t, iter))
}

func TestFetchXmlScanNoAutoPageStopsAtFirstPage(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 10)
	e := New(Options{Client: f, PageSize: 4})

	node := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch><entity name="account"></entity></fetch>`, AutoPage: false}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 4, drainAll(t, iter))
}

func TestCountOptimizedUsesFastPrimitive(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 7)
	e := New(Options{Client: f})

	node := &plan.CountOptimizedNode{Entity: "account", Alias: "count"}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	defer iter.Close(context.Background())

	r, err := iter.Next(context.Background())
	require.NoError(t, err)
	v, ok := r.Get("count")
	require.True(t, ok)
	assert.EqualValues(t, 7, v.Plain())

	_, err = iter.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestCountOptimizedFallsBackWhenEntityMissing(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 2)
	e := New(Options{Client: f})

	fallback := &plan.FetchXmlScan{Entity: "account", FetchXml: `<fetch aggregate="true"><entity name="account"></entity></fetch>`, AutoPage: true}
	node := &plan.CountOptimizedNode{Entity: "contact", Alias: "count", Fallback: fallback}
	iter, err := e.Build(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 2, drainAll(t, iter))
}

func TestCountOptimizedErrorsWithoutFallback(t *testing.T) {
	f := remote.NewFake()
	e := New(Options{Client: f})

	node := &plan.CountOptimizedNode{Entity: "contact", Alias: "count"}
	_, err := e.Build(context.Background(), node)
	assert.Error(t, err)
}
