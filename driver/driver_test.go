package driver

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

type fakeProvider struct{ engine *ppds.Engine }

func (p fakeProvider) Resolve(dsn string) (*ppds.Engine, error) { return p.engine, nil }

func seedAccounts(f *remote.Fake, n int) {
	for i := 0; i < n; i++ {
		f.Seed("account", remote.Record{
			EntityLogicalName: "account",
			Values:            map[string]interface{}{"accountid": "id-" + string(rune('0'+i)), "name": "Account"},
		})
	}
}

func TestDriverQueryReturnsRows(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 3)
	engine := ppds.NewDefault(f)

	sql.Register("ppds-driver-test-query", New(fakeProvider{engine: engine}))
	db, err := sql.Open("ppds-driver-test-query", "fake")
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT name FROM account")
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		count++
	}
	assert.Equal(t, 3, count)
}

func TestDriverExecReturnsRowsAffected(t *testing.T) {
	f := remote.NewFake()
	seedAccounts(f, 2)
	engine := ppds.NewDefault(f)

	sql.Register("ppds-driver-test-exec", New(fakeProvider{engine: engine}))
	db, err := sql.Open("ppds-driver-test-exec", "fake")
	require.NoError(t, err)
	defer db.Close()

	res, err := db.Exec("DELETE FROM account")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestDriverRejectsBindArguments(t *testing.T) {
	f := remote.NewFake()
	engine := ppds.NewDefault(f)

	sql.Register("ppds-driver-test-bindings", New(fakeProvider{engine: engine}))
	db, err := sql.Open("ppds-driver-test-bindings", "fake")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Query("SELECT name FROM account WHERE accountid = ?", "id-0")
	assert.Error(t, err)
}
