// Package insight converts sanitized query results into an executive-level
// narrative: Insight, Evidence, Implication. Every number the narrative
// states must trace back to the data it was given; a ground-truth guard
// downgrades to a deterministic fallback rather than let an LLM-invented
// figure reach the user.
package insight

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
)

const maxResultsForPrompt = 100
const maxRowsShownInPrompt = 20

// systemPrompt is ported near-verbatim from insight_generator.py's
// SYSTEM_PROMPT: the Insight/Evidence/Implication structure, the
// never-invent-numbers rule, and the worked examples the model anchors on.
const systemPrompt = `You are an Executive Healthcare Intelligence Assistant. Your role is to convert raw database query results into clear, actionable insights for healthcare administrators, NHIS regulators, and finance auditors.

CRITICAL RULES (MUST FOLLOW):

1. GROUNDED RESPONSES ONLY:
   - Use ONLY the data provided in the query results
   - Never invent, estimate, or extrapolate numbers not in the results
   - If a number isn't in the results, don't mention it

2. RESPONSE STRUCTURE:
   Format your response as:
   - Insight: Clear, executive summary (1-2 sentences)
   - Evidence: Key numbers and facts from the data
   - Implication: What this means for decision-making (if applicable)

3. NO RAW SQL OR TECHNICAL DETAILS:
   - Never show SQL queries unless explicitly requested
   - Never show raw column names or database jargon

4. HANDLE EMPTY RESULTS:
   - If results are empty, state plainly that no matching data exists

5. PROFESSIONAL TONE:
   - Executive-level language, clear and concise, no jargon

Remember: be accurate, grounded, and executive-focused. Never hallucinate a number.`

// Generator produces the final narrative shown to the user.
type Generator struct {
	oracle *llmoracle.Client
}

// New builds a Generator. oracle may be nil, in which case Generate always
// returns the deterministic fallback summary.
func New(oracle *llmoracle.Client) *Generator {
	return &Generator{oracle: oracle}
}

// Generate produces a narrative for a query's sanitized results. rowCount,
// when >0, is the true total row count before any display truncation.
func (g *Generator) Generate(ctx context.Context, query string, results []map[string]any, rowCount int) string {
	if len(results) == 0 {
		return emptyResultInsight(query)
	}

	total := rowCount
	if total <= 0 {
		total = len(results)
	}

	if g.oracle == nil {
		return fallbackInsight(results, total)
	}

	limited := results
	if len(limited) > maxResultsForPrompt {
		limited = limited[:maxResultsForPrompt]
	}

	userPrompt := fmt.Sprintf(
		"User Query: %s\n\nQuery Results:\n%s\n\nGenerate a clear, executive-level insight based on these results. Follow the format: Insight, Evidence, Implication.",
		query, formatResultsForPrompt(limited, total),
	)

	resp, err := g.oracle.Complete(ctx, llmoracle.Request{
		Messages: []llmoracle.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return fallbackInsight(results, total)
	}

	narrative := strings.TrimSpace(resp)
	if !groundedInResults(narrative, results, total) {
		return fallbackInsight(results, total)
	}
	return narrative
}

func formatResultsForPrompt(results []map[string]any, totalCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total rows: %d\n", totalCount)
	fmt.Fprintf(&b, "Showing: %d rows\n\n", len(results))
	b.WriteString("Data:\n")

	shown := results
	if len(shown) > maxRowsShownInPrompt {
		shown = shown[:maxRowsShownInPrompt]
	}
	for i, row := range shown {
		fmt.Fprintf(&b, "  Row %d: %s\n", i+1, formatRow(row))
	}
	if len(results) > maxRowsShownInPrompt {
		fmt.Fprintf(&b, "  ... and %d more rows\n", len(results)-maxRowsShownInPrompt)
	}
	return b.String()
}

func formatRow(row map[string]any) string {
	parts := make([]string, 0, len(row))
	for k, v := range row {
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	return strings.Join(parts, ", ")
}

func emptyResultInsight(query string) string {
	return fmt.Sprintf(
		"The database does not contain data matching your query: '%s'. This could mean the data doesn't exist for the specified criteria, or the query parameters need adjustment.",
		query,
	)
}

var excludedFromSummary = map[string]bool{
	"id": true, "user_id": true, "claim_id": true,
}

func fallbackInsight(results []map[string]any, totalCount int) string {
	if len(results) == 1 {
		row := results[0]
		keys := orderedKeys(row)
		if len(keys) > 3 {
			keys = keys[:3]
		}
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, row[k]))
		}
		return fmt.Sprintf("Query returned 1 result: %s.", strings.Join(parts, ", "))
	}

	return fmt.Sprintf("Query returned %d results. Key data points: %s", totalCount, extractKeySummary(results))
}

func orderedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	return keys
}

func extractKeySummary(results []map[string]any) string {
	var parts []string
	limit := results
	if len(limit) > 5 {
		limit = limit[:5]
	}
	for _, row := range limit {
		for key, value := range row {
			if excludedFromSummary[strings.ToLower(key)] {
				continue
			}
			n, ok := asPositiveNumber(value)
			if !ok || n <= 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %v", key, value))
			break
		}
		if len(parts) >= 3 {
			break
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d records found", len(results))
	}
	return strings.Join(parts, "; ")
}

func asPositiveNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

var digitRunPattern = regexp.MustCompile(`\d[\d,]*`)

// groundedInResults is the ground-truth numeric-token guard: every digit run
// the narrative states (ignoring comma/whitespace formatting) must appear
// somewhere in the results data or equal the total row count, or the
// narrative is rejected as possibly hallucinated.
func groundedInResults(narrative string, results []map[string]any, totalCount int) bool {
	known := collectKnownNumbers(results, totalCount)

	for _, match := range digitRunPattern.FindAllString(narrative, -1) {
		normalized := strings.ReplaceAll(match, ",", "")
		if len(normalized) <= 1 {
			// Single digits are too common (percentages, list positions) to
			// reliably ground; only multi-digit figures are checked.
			continue
		}
		n, err := strconv.Atoi(normalized)
		if err != nil {
			continue
		}
		if !known[n] {
			return false
		}
	}
	return true
}

func collectKnownNumbers(results []map[string]any, totalCount int) map[int]bool {
	known := map[int]bool{totalCount: true, len(results): true}
	for _, row := range results {
		for _, value := range row {
			if n, ok := asPositiveNumber(value); ok {
				known[int(n)] = true
			}
			if s, ok := value.(string); ok {
				if n, err := strconv.Atoi(strings.ReplaceAll(s, ",", "")); err == nil {
					known[n] = true
				}
			}
		}
	}
	return known
}
