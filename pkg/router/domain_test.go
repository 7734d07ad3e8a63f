package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
)

func emptyCatalogue(t *testing.T) *catalog.Catalogue {
	t.Helper()
	return catalog.NewCatalogueFromSchema(catalog.NewSchema(map[string]catalog.Table{
		"claims":    {Name: "claims", Domain: catalog.DomainClaimsDiagnosis, Keywords: []string{"claim", "claims"}},
		"providers": {Name: "providers", Domain: catalog.DomainProviders, Keywords: []string{"provider", "providers", "facility", "facilities"}},
	}))
}

func TestDomainRouterRejectsOutOfScope(t *testing.T) {
	r := &DomainRouter{catalogue: emptyCatalogue(t)}
	decision := r.Route("what is the employee payroll this month")
	require.True(t, decision.Rejected)
	assert.Equal(t, rejectionOutOfScope, decision.RejectionReason)
}

func TestDomainRouterAllowsHealthcareContextOverride(t *testing.T) {
	r := &DomainRouter{catalogue: emptyCatalogue(t)}
	decision := r.Route("how many provider login credentials are linked to claims this month")
	assert.False(t, decision.Rejected)
}

func TestDomainRouterRoutesProviderKeywords(t *testing.T) {
	r := &DomainRouter{catalogue: emptyCatalogue(t)}
	decision := r.Route("which facilities had the highest patient volume")
	require.False(t, decision.Rejected)
	assert.Equal(t, catalog.DomainProviders, decision.Domain)
}

func TestDomainRouterRoutesClaimsKeywords(t *testing.T) {
	r := &DomainRouter{catalogue: emptyCatalogue(t)}
	decision := r.Route("show me diagnoses for malaria last quarter")
	require.False(t, decision.Rejected)
	assert.Equal(t, catalog.DomainClaimsDiagnosis, decision.Domain)
}

func TestDomainRouterRejectsUnclear(t *testing.T) {
	r := &DomainRouter{catalogue: emptyCatalogue(t)}
	decision := r.Route("xyz qwerty asdf")
	assert.True(t, decision.Rejected)
	assert.Equal(t, rejectionUnclear, decision.RejectionReason)
}
