package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDomain(t *testing.T) {
	cases := map[string]Domain{
		"claims":             DomainClaimsDiagnosis,
		"diagnosis_codes":    DomainClaimsDiagnosis,
		"providers":          DomainProviders,
		"provider_activity":  DomainProviders,
		"facilities":         DomainProviders,
		"users":              DomainSupporting,
		"states":             DomainSupporting,
		"some_unknown_table": DomainClaimsDiagnosis,
	}
	for table, want := range cases {
		assert.Equal(t, want, classifyDomain(table), "table %q", table)
	}
}

func TestSchemaTablesFor(t *testing.T) {
	schema := &Schema{tables: map[string]Table{
		"claims":    {Name: "claims", Domain: DomainClaimsDiagnosis, Keywords: tableKeywords["claims"]},
		"providers": {Name: "providers", Domain: DomainProviders, Keywords: tableKeywords["providers"]},
	}}

	got := schema.TablesFor([]string{"provider", "hospital"})
	require.Len(t, got, 1)
	assert.Equal(t, "providers", got[0])
}

func TestSchemaDescribeAndDomainOf(t *testing.T) {
	schema := &Schema{tables: map[string]Table{
		"claims": {Name: "claims", Domain: DomainClaimsDiagnosis},
	}}

	tbl, ok := schema.Describe("CLAIMS")
	require.True(t, ok)
	assert.Equal(t, "claims", tbl.Name)

	dom, ok := schema.DomainOf("claims")
	require.True(t, ok)
	assert.Equal(t, DomainClaimsDiagnosis, dom)

	_, ok = schema.DomainOf("nonexistent")
	assert.False(t, ok)
}
