// Package example is a runnable usage example: seed an in-memory remote
// store, build an Engine over it, and run a SELECT and a DML statement
// end to end. Unlike the teacher's _example/main.go (which starts a
// MySQL wire server and waits for a client to connect), this module has
// no wire protocol of its own, so the "example" is the library call
// sequence a real caller would make.
package example

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

var (
	entityName = "contact"
)

func createTestStore() *remote.Fake {
	f := remote.NewFake()
	createdAt := time.Unix(0, 1667304000000001000).UTC()
	f.Seed(entityName,
		remote.Record{EntityLogicalName: entityName, Values: map[string]interface{}{
			"contactid": "id-jane-deo", "name": "Jane Deo", "emailaddress1": "janedeo@gmail.com", "createdon": createdAt,
		}},
		remote.Record{EntityLogicalName: entityName, Values: map[string]interface{}{
			"contactid": "id-jane-doe", "name": "Jane Doe", "emailaddress1": "jane@doe.com", "createdon": createdAt,
		}},
		remote.Record{EntityLogicalName: entityName, Values: map[string]interface{}{
			"contactid": "id-john-doe", "name": "John Doe", "emailaddress1": "john@doe.com", "createdon": createdAt,
		}},
	)
	return f
}

// TestExampleSelectAndDelete walks the library's full call sequence: an
// Engine over a seeded store, a SELECT, and a DELETE, reading the
// result back the way a caller would.
func TestExampleSelectAndDelete(t *testing.T) {
	store := createTestStore()
	engine := ppds.NewDefault(store)

	res, err := engine.Query(context.Background(), "SELECT name, emailaddress1 FROM contact")
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
	assert.Equal(t, 3, res.Rows.Count)

	for _, rec := range res.Rows.Records {
		name, _ := rec.Get("name")
		email, _ := rec.Get("emailaddress1")
		fmt.Printf("%v <%v>\n", name.Plain(), email.Plain())
	}

	res, err = engine.Query(context.Background(), "DELETE FROM contact")
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
	require.Len(t, res.Rows.Records, 1)
	deleted, ok := res.Rows.Records[0].Get("deleted")
	require.True(t, ok)
	assert.EqualValues(t, 3, deleted.Plain())
}

// TestExampleExplainDoesNotTouchTheStore shows EXPLAIN returning a plan
// description without issuing any remote call.
func TestExampleExplainDoesNotTouchTheStore(t *testing.T) {
	store := createTestStore()
	engine := ppds.NewDefault(store)

	res, err := engine.Query(context.Background(), "EXPLAIN SELECT name FROM contact")
	require.NoError(t, err)
	require.Nil(t, res.Rows)
	require.NotNil(t, res.Explain)
	assert.Equal(t, "FetchXmlScan", res.Explain.NodeType)
}
