package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsSimpleSelect(t *testing.T) {
	require.NoError(t, Validate("SELECT name FROM customers LIMIT 5"))
}

func TestValidate_AcceptsAggregateSelect(t *testing.T) {
	query := "SELECT company, SUM(lifetime_value) AS total FROM customers GROUP BY company ORDER BY total DESC LIMIT 5"
	require.NoError(t, Validate(query))
}

func TestValidate_AcceptsTrailingSemicolon(t *testing.T) {
	require.NoError(t, Validate("SELECT 1;"))
	require.NoError(t, Validate("SELECT 1;   \n"))
}

func TestValidate_AcceptsKeywordLikeStringLiteral(t *testing.T) {
	require.NoError(t, Validate("SELECT * FROM orders WHERE status = 'update pending'"))
	require.NoError(t, Validate("SELECT * FROM orders WHERE status = 'it''s dropped'"))
}

func TestValidate_RejectsStackedQuery(t *testing.T) {
	err := Validate("SELECT 1; DROP TABLE customers")
	require.ErrorIs(t, err, ErrUnsafeQuery)
	require.Contains(t, err.Error(), "single statement")
}

func TestValidate_RejectsNonSelectLeadingKeyword(t *testing.T) {
	for _, query := range []string{
		"DELETE FROM customers",
		"delete from customers",
		"Update customers SET name = 'x'",
		"INSERT INTO customers VALUES (1)",
		"drop table customers",
		"WITH x AS (SELECT 1) SELECT * FROM x",
	} {
		err := Validate(query)
		require.ErrorIs(t, err, ErrUnsafeQuery, "query: %s", query)
	}
}

func TestValidate_RejectsForbiddenKeywordInBody(t *testing.T) {
	for _, query := range []string{
		"SELECT * FROM customers WHERE id IN (DELETE FROM orders)",
		"SELECT 1 UNION SELECT name FROM sqlite_master WHERE type = x; CREATE TABLE t (id)",
		"SELECT * INTO backup FROM customers",
		"SELECT exec FROM t",
	} {
		err := Validate(query)
		require.ErrorIs(t, err, ErrUnsafeQuery, "query: %s", query)
	}
}

func TestValidate_RejectsComments(t *testing.T) {
	for _, query := range []string{
		"SELECT 1 -- hidden",
		"SELECT /* smuggled */ 1",
		"SELECT 1 # trailing",
	} {
		err := Validate(query)
		require.ErrorIs(t, err, ErrUnsafeQuery, "query: %s", query)
		require.Contains(t, err.Error(), "comments")
	}
}

func TestValidate_RejectsEmptyAndWhitespace(t *testing.T) {
	require.ErrorIs(t, Validate(""), ErrUnsafeQuery)
	require.ErrorIs(t, Validate("   \n\t"), ErrUnsafeQuery)
}

func TestValidate_RejectsUnterminatedLiteral(t *testing.T) {
	err := Validate("SELECT * FROM customers WHERE name = 'unterminated")
	require.ErrorIs(t, err, ErrUnsafeQuery)
	require.Contains(t, err.Error(), "malformed")
}

func TestValidate_RejectionMessageStaysAtCategoryLevel(t *testing.T) {
	err := Validate("SELECT 1; DROP TABLE customers")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "DROP")
	require.NotContains(t, err.Error(), "customers")
}
