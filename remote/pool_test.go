package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolLeaseRoundTrip(t *testing.T) {
	fake := NewFake()
	pool := NewPool(fake, 2, nil)
	require.Equal(t, 2, pool.Capacity())

	c1, err := pool.GetClientAsync(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 1, pool.Stats().InUse)

	c2, err := pool.GetClientAsync(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, 2, pool.Stats().InUse)

	c1.Release()
	require.Equal(t, 1, pool.Stats().InUse)
	c2.Release()
	require.Equal(t, 0, pool.Stats().InUse)
}

func TestPoolGetClientCancelled(t *testing.T) {
	fake := NewFake()
	pool := NewPool(fake, 1, nil)
	c1, err := pool.GetClientAsync(context.Background(), "")
	require.NoError(t, err)
	defer c1.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.GetClientAsync(ctx, "")
	require.Error(t, err)
}

func TestFakeRetrieveMultiplePaging(t *testing.T) {
	fake := NewFake()
	for i := 0; i < 5; i++ {
		fake.Seed("account", Record{EntityLogicalName: "account", Values: map[string]interface{}{"accountid": i}})
	}
	res, err := fake.RetrieveMultipleAsync(context.Background(), `<fetch><entity name="account"></entity></fetch>`, "", 2)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.True(t, res.MoreRecords)
	require.NotEmpty(t, res.PagingCookie)

	res2, err := fake.RetrieveMultipleAsync(context.Background(), `<fetch><entity name="account"></entity></fetch>`, res.PagingCookie, 2)
	require.NoError(t, err)
	require.Len(t, res2.Records, 2)
	require.True(t, res2.MoreRecords)
}

func TestFakeBulkExecute(t *testing.T) {
	fake := NewFake()
	result, err := fake.ExecuteBulkAsync(context.Background(), []BulkRequest{
		{Operation: "create", Entity: "account", Values: map[string]interface{}{"accountid": "1", "name": "Contoso"}},
	}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Len(t, fake.Entities["account"], 1)
}
