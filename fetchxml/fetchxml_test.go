package fetchxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/ppds-sdk/parser"
)

func generateSql(t *testing.T, sql string) *TranspileResult {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	res, err := Generate(stmt, Options{})
	require.NoError(t, err)
	return res
}

func TestGenerateSimpleSelect(t *testing.T) {
	res := generateSql(t, "SELECT name, revenue FROM account WHERE name = 'Contoso'")
	require.Equal(t, "account", res.EntityLogicalName)
	require.Contains(t, res.FetchXml, `<entity name="account">`)
	require.Contains(t, res.FetchXml, `<attribute name="name" />`)
	require.Contains(t, res.FetchXml, `<attribute name="revenue" />`)
	require.Contains(t, res.FetchXml, `<condition attribute="name" operator="eq" value="Contoso" />`)
	require.Nil(t, res.Residual)
}

func TestGenerateVirtualColumn(t *testing.T) {
	res := generateSql(t, "SELECT owneridname FROM account")
	vc, ok := res.VirtualColumns["owneridname"]
	require.True(t, ok)
	require.Equal(t, "ownerid", vc.BaseColumnName)
	require.Contains(t, res.FetchXml, `<attribute name="ownerid" />`)
}

func TestGenerateBareCountStar(t *testing.T) {
	res := generateSql(t, "SELECT COUNT(*) FROM account")
	require.Contains(t, res.FetchXml, `aggregate="true"`)
	require.Contains(t, res.FetchXml, `<attribute name="accountid" alias="count" aggregate="count" />`)
}

func TestGenerateLikeOperators(t *testing.T) {
	cases := map[string]string{
		"name LIKE '%foo%'": `operator="like" value="%foo%"`,
		"name LIKE 'foo%'":  `operator="begins-with" value="foo"`,
		"name LIKE '%foo'":  `operator="ends-with" value="foo"`,
	}
	for sql, want := range cases {
		res := generateSql(t, "SELECT name FROM account WHERE "+sql)
		require.Contains(t, res.FetchXml, want, sql)
	}
}

func TestGenerateFlipsLiteralOnLeft(t *testing.T) {
	res := generateSql(t, "SELECT name FROM account WHERE 10 < revenue")
	require.Contains(t, res.FetchXml, `operator="gt" value="10"`)
}

func TestGenerateResidualForColumnToColumnComparison(t *testing.T) {
	res := generateSql(t, "SELECT name FROM account WHERE revenue > createdon")
	require.NotNil(t, res.Residual)
	require.Contains(t, res.FetchXml, `<attribute name="revenue" />`)
	require.Contains(t, res.FetchXml, `<attribute name="createdon" />`)
	require.False(t, strings.Contains(res.FetchXml, "<condition"))
}

func TestGenerateMixedWhereSplitsPushableAndResidual(t *testing.T) {
	res := generateSql(t, "SELECT name FROM account WHERE name = 'Contoso' AND revenue > createdon")
	require.NotNil(t, res.Residual)
	require.Contains(t, res.FetchXml, `<condition attribute="name" operator="eq" value="Contoso" />`)
	require.Contains(t, res.FetchXml, `<attribute name="createdon" />`)
}

func TestGenerateJoinInner(t *testing.T) {
	res := generateSql(t, "SELECT a.name FROM contact c INNER JOIN account a ON c.parentcustomerid = a.accountid")
	require.Contains(t, res.FetchXml, `<link-entity name="account" from="accountid" to="parentcustomerid" link-type="inner" alias="a">`)
}

func TestGenerateJoinRightLowersToOuterWithWarning(t *testing.T) {
	res := generateSql(t, "SELECT a.name FROM contact c RIGHT JOIN account a ON c.parentcustomerid = a.accountid")
	require.Contains(t, res.FetchXml, `link-type="outer"`)
	require.NotEmpty(t, res.Warnings)
}

func TestGenerateGroupByDateGrouping(t *testing.T) {
	res := generateSql(t, "SELECT COUNT(*), YEAR(createdon) FROM account GROUP BY YEAR(createdon)")
	require.Contains(t, res.FetchXml, `dategrouping="year"`)
	require.Contains(t, res.FetchXml, `groupby="true"`)
}

func TestGenerateAvgCompanionCountForPartitionTemplate(t *testing.T) {
	stmt, err := parser.Parse("SELECT AVG(revenue) FROM account")
	require.NoError(t, err)
	res, err := Generate(stmt, Options{ForPartitionTemplate: true})
	require.NoError(t, err)
	require.Contains(t, res.FetchXml, `aggregate="avg"`)
	require.Contains(t, res.FetchXml, `aggregate="countcolumn"`)
}

func TestGenerateTopAndDistinct(t *testing.T) {
	res := generateSql(t, "SELECT TOP 10 DISTINCT name FROM account")
	require.Contains(t, res.FetchXml, `top="10"`)
	require.Contains(t, res.FetchXml, `distinct="true"`)
}

func TestGenerateRejectsNonColumnJoinOn(t *testing.T) {
	stmt, err := parser.Parse("SELECT a.name FROM contact c INNER JOIN account a ON c.parentcustomerid = 1")
	require.NoError(t, err)
	_, err = Generate(stmt, Options{})
	require.Error(t, err)
}

func TestGenerateOrderByUsesGroupByAliasWhenAggregate(t *testing.T) {
	res := generateSql(t, "SELECT COUNT(*), YEAR(createdon) FROM account GROUP BY YEAR(createdon) ORDER BY createdon")
	require.Contains(t, res.FetchXml, `<order alias=`)
}

func TestGenerateOrderByUsesAggregateAliasWhenAggregate(t *testing.T) {
	res := generateSql(t, "SELECT SUM(revenue) AS total FROM account GROUP BY ownerid ORDER BY total")
	require.Contains(t, res.FetchXml, `<order alias="total" />`)
	require.NotContains(t, res.FetchXml, `<order attribute="total"`)
}

func TestGenerateOrderByUsesPlainSelectAliasWhenAggregate(t *testing.T) {
	res := generateSql(t, "SELECT ownerid AS owner, SUM(revenue) FROM account GROUP BY ownerid ORDER BY owner")
	require.Contains(t, res.FetchXml, `<order alias="owner" />`)
}

func TestGenerateVirtualColumnKeepsExplicitlyQueriedBase(t *testing.T) {
	res := generateSql(t, "SELECT ownerid, owneridname FROM account")
	vc, ok := res.VirtualColumns["owneridname"]
	require.True(t, ok)
	require.True(t, vc.BaseColumnExplicitlyQueried)
}

func TestGenerateVirtualColumnBaseNotQueried(t *testing.T) {
	res := generateSql(t, "SELECT owneridname FROM account")
	vc, ok := res.VirtualColumns["owneridname"]
	require.True(t, ok)
	require.False(t, vc.BaseColumnExplicitlyQueried)
}

func TestGenerateIsNullOmitsValueAttribute(t *testing.T) {
	res := generateSql(t, "SELECT name FROM account WHERE name IS NULL")
	require.Contains(t, res.FetchXml, `<condition attribute="name" operator="null" />`)
}

func TestGenerateInAndBetween(t *testing.T) {
	res := generateSql(t, "SELECT name FROM account WHERE statecode IN (0, 1) AND revenue BETWEEN 100 AND 200")
	require.Contains(t, res.FetchXml, `operator="in"`)
	require.Contains(t, res.FetchXml, `operator="between"`)
}
