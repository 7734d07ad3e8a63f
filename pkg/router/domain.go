package router

import (
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
)

// DomainDecision is the outcome of routing a DATA-intent utterance to a
// business domain, or rejecting it as out of scope.
type DomainDecision struct {
	Domain          catalog.Domain
	Rejected        bool
	RejectionReason string
	DetectedTables  []string
}

// healthcareKeywords groups natural-language terms by category, ported from
// domain_router.py's HEALTHCARE_KEYWORDS.
var healthcareKeywords = map[string][]string{
	"claims":    {"claim", "claims", "clinical claim", "medical claim"},
	"diagnosis": {"diagnosis", "diagnoses", "disease", "diseases", "illness", "condition", "conditions", "malaria", "typhoid"},
	"services":  {"service", "services", "treatment", "treatments", "procedure", "procedures"},
	"cost":      {"cost", "costs", "price", "prices", "expense", "expenses", "financial", "revenue", "amount", "total cost"},
	"provider":  {"provider", "providers", "facility", "facilities", "hospital", "hospitals", "clinic", "clinics"},
	"performance": {"performance", "activity", "operational", "utilization", "volume", "capacity"},
	"geography": {"state", "states", "lga", "lgas", "zone", "zones", "location", "region", "kogi", "zamfara",
		"kano", "kaduna", "fct", "abuja", "adamawa", "sokoto", "rivers", "osun", "lagos"},
	"time": {"month", "months", "year", "years", "quarter", "quarterly", "monthly", "yearly", "trend", "trends",
		"over time", "this month", "this year", "last month", "last year"},
	"analytics": {"count", "total", "number", "how many", "show", "list", "top", "bottom", "highest", "lowest",
		"most", "least", "breakdown", "break down", "by", "grouped by"},
}

// outOfScopeKeywords marks HR/payroll/credential terms that are never
// healthcare-claims data, ported from domain_router.py's
// OUT_OF_SCOPE_KEYWORDS.
var outOfScopeKeywords = []string{
	"password", "passwords", "credential", "credentials", "login", "logins",
	"payroll", "salary", "salaries", "wage", "wages", "employee", "employees",
	"hr", "human resources", "telescope", "admin user", "user account", "user accounts",
	"permission", "permissions", "role assignment", "wallet balance", "rating", "ratings",
}

const rejectionOutOfScope = "This question is outside the supported analysis scope. " +
	"Supported domains: Clinical Claims & Diagnosis, Providers & Facilities Performance."

const rejectionUnclear = "This question requires clarification. " +
	"Please specify what healthcare data you'd like to analyze (e.g., claims, diagnoses, providers, facilities)."

// DomainRouter routes a DATA utterance to one of the two business domains,
// or rejects it as out-of-scope/unclear. Runs before the Intent Classifier
// in the pipeline. An HR/credential keyword rejects the utterance unless it
// also names a claims, diagnosis, service, cost or provider term; generic
// time, analytics, geography and performance words do not override it.
type DomainRouter struct {
	catalogue *catalog.Catalogue
}

// NewDomainRouter creates a DomainRouter against the live schema catalogue.
func NewDomainRouter(catalogue *catalog.Catalogue) *DomainRouter {
	return &DomainRouter{catalogue: catalogue}
}

// Route classifies a DATA-intent utterance into a domain or a rejection.
func (r *DomainRouter) Route(question string) DomainDecision {
	lower := strings.ToLower(question)

	for _, kw := range outOfScopeKeywords {
		if strings.Contains(lower, kw) && !hasHealthcareContext(lower) {
			return DomainDecision{Rejected: true, RejectionReason: rejectionOutOfScope}
		}
	}

	schema := r.catalogue.Current()
	detected := schema.TablesFor(tokenize(lower))
	if len(detected) > 0 {
		if dom := tieBreakDomain(schema, detected, lower); dom != catalog.DomainUnknown {
			return DomainDecision{Domain: dom, DetectedTables: detected}
		}
	}

	if hasHealthcareKeywords(lower) {
		switch {
		case hasKeywords(lower, healthcareKeywords["provider"]):
			return DomainDecision{Domain: catalog.DomainProviders, DetectedTables: detected}
		case hasClaimsKeywords(lower):
			return DomainDecision{Domain: catalog.DomainClaimsDiagnosis, DetectedTables: detected}
		default:
			return DomainDecision{Domain: catalog.DomainClaimsDiagnosis, DetectedTables: detected}
		}
	}

	if hasKeywords(lower, healthcareKeywords["analytics"]) {
		return DomainDecision{Domain: catalog.DomainClaimsDiagnosis, DetectedTables: detected}
	}

	return DomainDecision{Rejected: true, RejectionReason: rejectionUnclear}
}

func hasKeywords(question string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(question, kw) {
			return true
		}
	}
	return false
}

func hasClaimsKeywords(question string) bool {
	return hasKeywords(question, healthcareKeywords["claims"]) || hasKeywords(question, healthcareKeywords["diagnosis"])
}

func hasHealthcareKeywords(question string) bool {
	for _, kws := range healthcareKeywords {
		if hasKeywords(question, kws) {
			return true
		}
	}
	return false
}

// hasHealthcareContext reports whether the question names a healthcare
// subject (claims, diagnosis, services, cost or provider terms).
func hasHealthcareContext(question string) bool {
	for _, category := range []string{"claims", "diagnosis", "services", "cost", "provider"} {
		if hasKeywords(question, healthcareKeywords[category]) {
			return true
		}
	}
	return false
}

// tieBreakDomain mirrors schema_mapper.py's get_domain_for_query: provider
// keywords win when present, claims/diagnosis keywords win otherwise, else
// fall back to majority vote across the detected tables' domains.
func tieBreakDomain(schema *catalog.Schema, detected []string, question string) catalog.Domain {
	var domain1, domain2 int
	for _, t := range detected {
		if d, ok := schema.DomainOf(t); ok {
			switch d {
			case catalog.DomainClaimsDiagnosis:
				domain1++
			case catalog.DomainProviders:
				domain2++
			}
		}
	}

	hasProvider := hasKeywords(question, healthcareKeywords["provider"])
	hasClaims := hasClaimsKeywords(question)

	switch {
	case hasProvider && domain2 > 0:
		return catalog.DomainProviders
	case hasClaims && domain1 > 0:
		return catalog.DomainClaimsDiagnosis
	case domain2 > domain1:
		return catalog.DomainProviders
	case domain1 > 0:
		return catalog.DomainClaimsDiagnosis
	case hasProvider:
		return catalog.DomainProviders
	case hasClaims:
		return catalog.DomainClaimsDiagnosis
	default:
		return catalog.DomainUnknown
	}
}

func tokenize(question string) []string {
	fields := strings.FieldsFunc(question, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	return fields
}
