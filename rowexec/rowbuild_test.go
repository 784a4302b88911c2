package rowexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/fetchxml"
	"github.com/joshsmithxrm/ppds-sdk/parser"
	"github.com/joshsmithxrm/ppds-sdk/remote"
)

func TestProjectRecordResolvesLookupDisplayName(t *testing.T) {
	e := New(Options{})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"primarycontactid": "00000000-0000-0000-0000-000000000001"},
		FormattedValues:   map[string]string{"primarycontactid": "Jane Doe"},
	}
	r := e.projectRecord("account", rec)
	v, ok := r.Get("primarycontactid")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", v.Plain())
}

func TestProjectRecordResolvesOptionSetLabel(t *testing.T) {
	e := New(Options{})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"statuscode": 1},
		FormattedValues:   map[string]string{"statuscode": "Active"},
	}
	r := e.projectRecord("account", rec)
	v, ok := r.Get("statuscode")
	require.True(t, ok)
	assert.Equal(t, "Active", v.Plain())
}

func TestProjectRecordRemapsVirtualColumnAndDropsRawKey(t *testing.T) {
	e := New(Options{VirtualColumns: map[string]fetchxml.VirtualColumn{
		"owneridname": {BaseColumnName: "ownerid"},
	}})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"ownerid": "00000000-0000-0000-0000-000000000002"},
		FormattedValues:   map[string]string{"ownerid": "Pat Smith"},
	}
	r := e.projectRecord("account", rec)
	v, ok := r.Get("owneridname")
	require.True(t, ok)
	assert.Equal(t, "Pat Smith", v.Plain())
	_, hasRaw := r.Get("ownerid")
	assert.False(t, hasRaw, "unqueried base attribute is dropped once remapped to its virtual column name")
}

func TestProjectRecordKeepsExplicitlyQueriedBase(t *testing.T) {
	e := New(Options{VirtualColumns: map[string]fetchxml.VirtualColumn{
		"owneridname": {BaseColumnName: "ownerid", BaseColumnExplicitlyQueried: true},
	}})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"ownerid": "00000000-0000-0000-0000-000000000002"},
		FormattedValues:   map[string]string{"ownerid": "Pat Smith"},
	}
	r := e.projectRecord("account", rec)
	_, hasRaw := r.Get("ownerid")
	assert.True(t, hasRaw, "base attribute stays when it was explicitly queried in its own right")
}

func TestProjectRecordKeepsExplicitlyQueriedBaseFromRealGenerator(t *testing.T) {
	stmt, err := parser.Parse("SELECT ownerid, owneridname FROM account")
	require.NoError(t, err)
	plan, err := fetchxml.Generate(stmt, fetchxml.Options{})
	require.NoError(t, err)

	e := New(Options{VirtualColumns: plan.VirtualColumns})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"ownerid": "00000000-0000-0000-0000-000000000002"},
		FormattedValues:   map[string]string{"ownerid": "Pat Smith"},
	}
	r := e.projectRecord("account", rec)
	_, hasRaw := r.Get("ownerid")
	assert.True(t, hasRaw, "base attribute explicitly selected alongside its virtual name stays on the row")
	v, ok := r.Get("owneridname")
	require.True(t, ok)
	assert.Equal(t, "Pat Smith", v.Plain())
}

func TestProjectRecordSplitsAliasedKey(t *testing.T) {
	e := New(Options{})
	rec := remote.Record{
		EntityLogicalName: "account",
		Values:            map[string]interface{}{"contact.fullname": "Jane Doe"},
	}
	r := e.projectRecord("account", rec)
	v, ok := r.Get("contact.fullname")
	require.True(t, ok)
	assert.Equal(t, "contact", v.AliasedSourceEntity)
	assert.Equal(t, "fullname", v.AliasedAttribute)
}
