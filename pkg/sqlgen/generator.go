package sqlgen

import (
	"context"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
)

// Generator produces a Candidate for a classified, domain-routed question:
// the grounded template path is always tried first, and only falls through
// to the LLM path when nothing in the library matches closely enough.
type Generator struct {
	oracle  *llmoracle.Client
	dialect string
}

// New builds a Generator. oracle may be nil, in which case any question
// that misses the template library fails to generate rather than calling
// out to an LLM.
func New(oracle *llmoracle.Client, dialect string) *Generator {
	if dialect == "" {
		dialect = "postgres"
	}
	return &Generator{oracle: oracle, dialect: dialect}
}

// Generate runs the template-then-LLM path. schema and tables scope the LLM
// prompt to the routed domain's allowed tables; historySummary, when
// non-empty, is folded into the LLM prompt as prior-turn context.
func (g *Generator) Generate(
	ctx context.Context,
	query string,
	intent classifier.Intent,
	domain catalog.Domain,
	schema *catalog.Schema,
	tables []string,
	historySummary string,
) (Candidate, error) {
	if tmpl, score, ok := matchTemplate(query, intent, domain); ok {
		return Candidate{
			SQL:         tmpl.SQL,
			Explanation: tmpl.Explanation,
			Confidence:  templateConfidence(score),
			Source:      SourceTemplate,
		}, nil
	}

	return g.generateLLM(ctx, query, schema, tables, historySummary)
}

// templateConfidence maps a template's similarity score into a confidence
// value that always outranks an LLM candidate of equal or lower score — a
// template hit is always preferred, per the preference-order rule.
func templateConfidence(similarity float64) float64 {
	confidence := 0.8 + similarity*0.2
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
