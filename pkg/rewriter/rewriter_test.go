package rewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/sqlgen"
)

func TestRewriteFixesDuplicateDistinct(t *testing.T) {
	r := New()
	result := r.Rewrite("SELECT COUNT(DISTINCT DISTINCT c.id) FROM claims c", "how many claims")
	require.Empty(t, result.Error)
	assert.True(t, result.Rewritten)
	assert.Contains(t, result.SQL, "COUNT(DISTINCT c.id)")
	assert.NotContains(t, result.SQL, "DISTINCT DISTINCT")
}

func TestRewriteStripsStateJoinsWhenNoStateMentioned(t *testing.T) {
	r := New()
	sql := "SELECT c.id FROM claims c JOIN users u ON c.user_id = u.id JOIN states s ON u.state = s.id WHERE s.name LIKE '%STATENAME%'"
	result := r.Rewrite(sql, "how many claims were filed this year")
	require.Empty(t, result.Error)
	assert.True(t, result.Rewritten)
	assert.NotContains(t, result.SQL, "JOIN users")
	assert.NotContains(t, result.SQL, "JOIN states")
}

func TestRewriteKeepsStateJoinsWhenStateMentioned(t *testing.T) {
	r := New()
	sql := "SELECT c.id FROM claims c JOIN users u ON c.user_id = u.id JOIN states s ON u.state = s.id WHERE s.name LIKE '%STATENAME%'"
	result := r.Rewrite(sql, "how many claims were filed in lagos state")
	require.Empty(t, result.Error)
	assert.Contains(t, result.SQL, "JOIN users")
	assert.Contains(t, result.SQL, "JOIN states")
}

func TestRewriteFixesDiagnosesGroupBy(t *testing.T) {
	r := New()
	sql := "SELECT d.name, COUNT(*) FROM claims c JOIN diagnoses d ON c.diagnosis_id = d.id GROUP BY d.id"
	result := r.Rewrite(sql, "most common diagnoses")
	require.Empty(t, result.Error)
	assert.True(t, result.Rewritten)
	assert.Contains(t, result.SQL, "GROUP BY d.name")
}

func TestRewriteFixesProvidersGroupBy(t *testing.T) {
	r := New()
	sql := "SELECT p.name, COUNT(*) FROM claims c JOIN providers p ON c.provider_id = p.id GROUP BY p.id"
	result := r.Rewrite(sql, "top providers by claim volume")
	require.Empty(t, result.Error)
	assert.Contains(t, result.SQL, "GROUP BY p.provider_id")
}

func TestRewriteAddsDistinctToClaimsCountInFrequencyQuery(t *testing.T) {
	r := New()
	sql := "SELECT COUNT(c.id) FROM claims c"
	result := r.Rewrite(sql, "what is the count of claims filed")
	require.Empty(t, result.Error)
	assert.Contains(t, result.SQL, "COUNT(DISTINCT c.id)")
}

func TestRewriteLeavesNonFrequencyCountUntouched(t *testing.T) {
	r := New()
	sql := "SELECT COUNT(c.id) FROM claims c"
	result := r.Rewrite(sql, "total cost of claims")
	require.Empty(t, result.Error)
	assert.Contains(t, result.SQL, "COUNT(c.id)")
	assert.NotContains(t, result.SQL, "DISTINCT")
}

func TestRewriteIsIdempotent(t *testing.T) {
	r := New()
	inputs := []struct{ sql, query string }{
		{"SELECT COUNT(DISTINCT DISTINCT c.id) FROM claims c", "how many claims"},
		{"SELECT d.name, COUNT(*) FROM claims c JOIN diagnoses d ON c.diagnosis_id = d.id GROUP BY d.id", "most common diagnoses"},
		{"SELECT COUNT(c.id) FROM claims c", "what is the count of claims filed"},
		{"SELECT c.id FROM claims c JOIN users u ON c.user_id = u.id JOIN states s ON u.state = s.id WHERE s.name LIKE '%STATENAME%'", "how many claims"},
	}
	for _, in := range inputs {
		first := r.Rewrite(in.sql, in.query)
		require.Empty(t, first.Error)
		second := r.Rewrite(first.SQL, in.query)
		require.Empty(t, second.Error)
		assert.Equal(t, first.SQL, second.SQL)
	}
}

func TestRewriteRejectsEmptySQL(t *testing.T) {
	r := New()
	result := r.Rewrite("", "how many claims")
	assert.NotEmpty(t, result.Error)
}

func TestApplyRewritesCandidateSQL(t *testing.T) {
	r := New()
	candidate := sqlgen.Candidate{SQL: "SELECT COUNT(DISTINCT DISTINCT c.id) FROM claims c", Source: sqlgen.SourceTemplate}
	rewritten := r.Apply(candidate, "how many claims")
	assert.Contains(t, rewritten.SQL, "COUNT(DISTINCT c.id)")
	assert.Equal(t, sqlgen.SourceTemplate, rewritten.Source)
}

func TestApplyDiscardsToOriginalOnError(t *testing.T) {
	r := New()
	candidate := sqlgen.Candidate{SQL: "", Source: sqlgen.SourceLLM}
	rewritten := r.Apply(candidate, "how many claims")
	assert.Equal(t, candidate, rewritten)
}
