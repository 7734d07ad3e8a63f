package sqlgen

import (
	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
)

// Template is a curated, pre-baked question→SQL mapping, keyed by the
// classified intent and routed domain. Pre-baking trades the LLM's
// generality for traceability: a template hit can always be pointed back to
// a reviewed SQL statement, unlike an LLM-generated one.
type Template struct {
	Intent           classifier.Intent
	Domain           catalog.Domain
	ExampleQuestions []string
	SQL              string
	Explanation      string
}

// templateLibrary is grounded in the shape of sql_generator.py's
// schema-aware prompting, pre-baked into a fixed library rather than
// generated per-request from the LLM.
var templateLibrary = []Template{
	{
		Intent: classifier.IntentFrequencyVolume,
		Domain: catalog.DomainClaimsDiagnosis,
		ExampleQuestions: []string{
			"what are the top diagnoses this year",
			"most common diagnoses",
			"top 10 diagnoses",
			"how many claims were filed",
		},
		SQL: `SELECT d.name AS diagnosis, COUNT(DISTINCT c.id) AS claim_count
FROM claims c
JOIN diagnoses d ON c.diagnosis_id = d.id
GROUP BY d.name
ORDER BY claim_count DESC
LIMIT :top_n`,
		Explanation: "Counts claims per diagnosis, ranked by volume.",
	},
	{
		Intent: classifier.IntentCostFinancial,
		Domain: catalog.DomainClaimsDiagnosis,
		ExampleQuestions: []string{
			"what is the total cost of claims",
			"average claim cost by diagnosis",
			"total cost of claims this year",
		},
		SQL: `SELECT d.name AS diagnosis, SUM(c.cost) AS total_cost, AVG(c.cost) AS avg_claim_cost
FROM claims c
JOIN diagnoses d ON c.diagnosis_id = d.id
GROUP BY d.name
ORDER BY total_cost DESC`,
		Explanation: "Aggregates claim cost per diagnosis.",
	},
	{
		Intent: classifier.IntentTrendTimeSeries,
		Domain: catalog.DomainClaimsDiagnosis,
		ExampleQuestions: []string{
			"show the monthly trend of claims",
			"claims trend over time",
			"how has claim volume changed",
		},
		SQL: `SELECT EXTRACT(YEAR FROM c.created_at) AS year, EXTRACT(MONTH FROM c.created_at) AS month,
       COUNT(DISTINCT c.id) AS claim_count
FROM claims c
GROUP BY year, month
ORDER BY year, month`,
		Explanation: "Counts claims by calendar month.",
	},
	{
		Intent: classifier.IntentServiceUtilization,
		Domain: catalog.DomainClaimsDiagnosis,
		ExampleQuestions: []string{
			"what services were used for malaria treatment",
			"services provided for diabetes",
			"which treatments were performed most often",
		},
		SQL: `SELECT s.name AS service, COUNT(DISTINCT cs.claim_id) AS usage_count
FROM claims_services cs
JOIN services s ON cs.service_id = s.id
JOIN claims c ON cs.claim_id = c.id
JOIN diagnoses d ON c.diagnosis_id = d.id
WHERE d.name ILIKE :diagnosis_pattern
GROUP BY s.name
ORDER BY usage_count DESC`,
		Explanation: "Counts service usage for claims tied to a given diagnosis.",
	},
	{
		Intent: classifier.IntentFrequencyVolume,
		Domain: catalog.DomainProviders,
		ExampleQuestions: []string{
			"which facilities had the highest patient volume",
			"top providers by claim volume",
			"most active hospitals",
		},
		SQL: `SELECT p.name AS provider, p.provider_id AS provider_id, COUNT(DISTINCT c.id) AS claim_count
FROM claims c
JOIN providers p ON c.provider_id = p.id
GROUP BY p.name, p.provider_id
ORDER BY claim_count DESC
LIMIT :top_n`,
		Explanation: "Ranks providers by claim volume.",
	},
}

// matchThreshold is the minimum Jaccard similarity a question must clear
// against a template's example questions before the template is used.
const matchThreshold = 0.35

// matchTemplate returns the best-matching template for the given intent and
// domain, along with its similarity score. Returns ok=false if no template
// for this intent/domain pair clears matchThreshold.
func matchTemplate(query string, intent classifier.Intent, domain catalog.Domain) (Template, float64, bool) {
	var best Template
	bestScore := 0.0
	found := false

	for _, tmpl := range templateLibrary {
		if tmpl.Intent != intent || tmpl.Domain != domain {
			continue
		}
		for _, example := range tmpl.ExampleQuestions {
			score := jaccardSimilarity(query, example)
			if score > bestScore {
				bestScore = score
				best = tmpl
				found = true
			}
		}
	}

	if !found || bestScore < matchThreshold {
		return Template{}, bestScore, false
	}
	return best, bestScore, true
}
