package sqlgen

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
)

// systemPromptTemplate mirrors sql_generator.py's system_prompt, generalized
// from a fixed "mysql" target to the warehouse dialect the gateway is
// configured for, and with the allowed-table list scoped to the routed
// domain instead of the whole schema.
const systemPromptTemplate = `You are an expert SQL query generator for a %s analytics warehouse.

Your task is to convert natural language questions into accurate, safe, read-only SQL queries.

CRITICAL RULES:
1. ONLY generate SELECT queries (read-only)
2. NEVER include INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, TRUNCATE, GRANT, or REVOKE
3. Use proper %s syntax
4. Only reference these tables: %s
5. Include proper JOINs with explicit ON conditions when needed
6. Use aggregate functions (COUNT, SUM, AVG) when the question asks for totals or averages
7. Add WHERE clauses for any filters mentioned in the question
8. Use LIMIT when the user asks for "top N" or "first N"

OUTPUT FORMAT:
Respond with ONLY a valid JSON object in this exact format:
{"sql": "SELECT ... FROM ... WHERE ...", "explanation": "brief explanation", "confidence": 0.9}

The SQL must be executable %s syntax. confidence must be between 0.0 and 1.0.`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*"sql"[^{}]*\}`)
var selectStatementPattern = regexp.MustCompile(`(?is)SELECT.*?(?:;|$)`)

type llmResponseEnvelope struct {
	SQL         string  `json:"sql"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

// generateLLM builds the strict prompt and requests a candidate, retrying
// once with a stricter reminder if the first response fails to parse or
// isn't a SELECT — a bounded repair loop rather than a silent broad except.
func (g *Generator) generateLLM(ctx context.Context, query string, schema *catalog.Schema, tables []string, historySummary string) (Candidate, error) {
	if g.oracle == nil {
		return Candidate{}, fmt.Errorf("sqlgen: no LLM oracle configured")
	}

	systemPrompt := fmt.Sprintf(systemPromptTemplate, g.dialect, g.dialect, strings.Join(tables, ", "), g.dialect)

	userPrompt := buildUserPrompt(query, historySummary)

	candidate, err := g.callAndParse(ctx, systemPrompt, userPrompt)
	if err == nil {
		return candidate, nil
	}

	repairPrompt := userPrompt + "\n\nYour previous response could not be parsed as the required JSON object containing a SELECT statement. Respond again with ONLY the JSON object."
	candidate, err = g.callAndParse(ctx, systemPrompt, repairPrompt)
	if err != nil {
		return Candidate{}, fmt.Errorf("sqlgen: generate SQL: %w", err)
	}
	return candidate, nil
}

func buildUserPrompt(query, historySummary string) string {
	var b strings.Builder
	if historySummary != "" {
		b.WriteString("PREVIOUS CONVERSATION:\n")
		b.WriteString(historySummary)
		b.WriteString("\n\n")
	}
	b.WriteString("USER QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nGenerate a SQL query to answer this question. Return ONLY the JSON object, no other text.")
	return b.String()
}

func (g *Generator) callAndParse(ctx context.Context, systemPrompt, userPrompt string) (Candidate, error) {
	resp, err := g.oracle.Complete(ctx, llmoracle.Request{
		Messages: []llmoracle.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("llm oracle call: %w", err)
	}
	return parseLLMResponse(resp)
}

// parseLLMResponse mirrors sql_generator.py's two-step parser: first try a
// JSON object extraction pass, then fall back to a first-SELECT-statement
// regex.
func parseLLMResponse(text string) (Candidate, error) {
	text = strings.TrimSpace(text)

	jsonText := text
	if m := jsonObjectPattern.FindString(text); m != "" {
		jsonText = m
	}

	var envelope llmResponseEnvelope
	if err := json.Unmarshal([]byte(jsonText), &envelope); err == nil && envelope.SQL != "" {
		return finalizeCandidate(envelope.SQL, envelope.Explanation, envelope.Confidence)
	}

	if m := selectStatementPattern.FindString(text); m != "" {
		sql := strings.TrimSuffix(strings.TrimSpace(m), ";")
		return finalizeCandidate(sql, "Generated SQL query", 0.7)
	}

	return Candidate{}, fmt.Errorf("could not parse LLM response as SQL")
}

func finalizeCandidate(sql, explanation string, confidence float64) (Candidate, error) {
	sql = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return Candidate{}, fmt.Errorf("generated query is not a SELECT statement")
	}
	if explanation == "" {
		explanation = "SQL query generated"
	}
	return Candidate{
		SQL:         sql,
		Explanation: explanation,
		Confidence:  confidence,
		Source:      SourceLLM,
	}, nil
}
