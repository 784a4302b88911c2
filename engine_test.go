package ppds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func seedAccounts(f *remote.Fake, n int) {
	for i := 0; i < n; i++ {
		f.Seed("account", remote.Record{
			EntityLogicalName: "account",
			Values: map[string]interface{}{
				"accountid": "id-" + string(rune('0'+i)),
				"name":      "Account",
			},
		})
	}
}

func TestQuerySelectReturnsRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 3)
	e := NewDefault(f)

	res, err := e.Query(context.Background(), "SELECT name FROM account")
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
	assert.Equal(t, 3, res.Rows.Count)
}

func TestQueryExplainReturnsDescriptionInsteadOfRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 2)
	e := NewDefault(f)

	res, err := e.Query(context.Background(), "EXPLAIN SELECT name FROM account")
	require.NoError(t, err)
	require.Nil(t, res.Rows)
	require.NotNil(t, res.Explain)
	assert.Equal(t, "FetchXmlScan", res.Explain.NodeType)
}

func TestQueryDeclareAndSetRoundtripThroughScope(t *testing.T) {
	f := remote.NewFake()
	e := NewDefault(f)

	_, err := e.Query(context.Background(), "DECLARE @threshold INT = 5")
	require.NoError(t, err)

	_, err = e.Query(context.Background(), "SET @threshold = 10")
	require.NoError(t, err)

	v, err := e.scope.Get("@threshold")
	require.NoError(t, err)
	assert.EqualValues(t, 10, v)
}

func TestQueryRejectsDmlWhenReadOnly(t *testing.T) {
	f := remote.NewFake()
	e := New(f, &Config{IsReadOnly: true}, nil)

	_, err := e.Query(context.Background(), "DELETE FROM account")
	assert.Error(t, err)
}

func TestQueryAllowsDmlWhenNotReadOnly(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 2)
	e := NewDefault(f)

	res, err := e.Query(context.Background(), "DELETE FROM account")
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
}
