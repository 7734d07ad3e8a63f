// Package sqlgen turns a classified, domain-routed question into candidate
// SQL: first by matching a curated template, falling back to an LLM call
// when no template matches closely enough.
package sqlgen

// Source identifies which path produced a Candidate.
type Source string

const (
	SourceTemplate Source = "template"
	SourceLLM      Source = "llm"
)

// Candidate is a generated SQL statement plus the metadata the rest of the
// pipeline needs to validate, rewrite, and explain it.
type Candidate struct {
	SQL         string
	Explanation string
	Confidence  float64
	Source      Source
	Params      map[string]any
}
