// Package classifier maps a domain-routed utterance to one of a small set
// of canonical intents, plus any time-window/top-N hints and clarification
// needs the SQL generator uses to pick and parameterize a template.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is a canonical query shape the SQL generator has templates for.
type Intent string

const (
	IntentServiceUtilization Intent = "SERVICE_UTILIZATION"
	IntentCostFinancial      Intent = "COST_FINANCIAL"
	IntentTrendTimeSeries    Intent = "TREND_TIME_SERIES"
	IntentFrequencyVolume    Intent = "FREQUENCY_VOLUME"
	IntentUnknown            Intent = "UNKNOWN"
)

var servicePatterns = compileAll(
	`\bservice\b`, `\bservices\b`, `\btreatment\b`, `\bprocedure\b`,
	`\bused for\b`, `\bperformed\b`, `\bprovided\b`, `\butilization\b`,
)

var costPatterns = compileAll(
	`\bcost\b`, `\bprice\b`, `\bexpense\b`, `\bexpensive\b`, `\bcheap\b`,
	`\baffordable\b`, `\bfinancial\b`, `\bamount\b`, `\btotal cost\b`,
	`\baverage cost\b`, `\bper diagnosis\b`,
)

var trendPatterns = compileAll(
	`\btrend\b`, `\bover time\b`, `\bmonthly\b`, `\byearly\b`, `\bquarterly\b`,
	`\bincrease\b`, `\bdecrease\b`, `\bchange\b`, `\bpattern\b`, `\bevolution\b`,
)

var frequencyPatterns = compileAll(
	`\bmost common\b`, `\btop \d+\b`, `\bhighest number\b`, `\bmost frequent\b`,
	`\bmost often\b`, `\bnumber of\b`, `\bcount of\b`, `\bhow many\b`,
	`\bfrequency\b`, `\bvolume\b`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Classifier assigns a canonical Intent to an utterance and extracts the
// time-window and top-N hints the SQL generator needs. Ordered the same way
// as intent_classifier.py: service utilization is checked first (most
// specific), then cost, then trend, then frequency/volume; an utterance that
// matches none of these is frequency/volume when it mentions a diagnosis or
// disease, and UNKNOWN otherwise.
type Classifier struct{}

// New creates a Classifier. Stateless; safe to share across goroutines.
func New() *Classifier { return &Classifier{} }

// Classification is the full result of classifying one utterance.
type Classification struct {
	Intent           Intent
	TimeReference    *TimeReference
	TopN             *int
	NeedsClarify     string // empty if no clarification is needed
}

// TimeReference describes a detected time window and the dialect SQL
// fragment implementing it.
type TimeReference struct {
	Kind string // "last_year", "this_year", "recent", "last_n_days", "last_n_months", "specific_month"
	SQL  string
}

// Classify runs the full C6 pipeline: intent, time reference, top-N, and
// clarification-need detection.
func (c *Classifier) Classify(query string) Classification {
	intent := c.classifyIntent(query)
	return Classification{
		Intent:        intent,
		TimeReference: c.extractTimeReference(query),
		TopN:          c.extractTopN(query),
		NeedsClarify:  c.needsClarification(query, intent),
	}
}

func (c *Classifier) classifyIntent(query string) Intent {
	lower := strings.ToLower(query)

	if anyMatch(servicePatterns, lower) {
		return IntentServiceUtilization
	}
	if anyMatch(costPatterns, lower) {
		return IntentCostFinancial
	}
	if anyMatch(trendPatterns, lower) {
		return IntentTrendTimeSeries
	}
	if anyMatch(frequencyPatterns, lower) {
		return IntentFrequencyVolume
	}
	if strings.Contains(lower, "diagnos") || strings.Contains(lower, "disease") {
		return IntentFrequencyVolume
	}
	return IntentUnknown
}

var (
	lastYearPattern    = regexp.MustCompile(`\blast year\b`)
	thisYearPattern    = regexp.MustCompile(`\bthis year\b`)
	recentPattern      = regexp.MustCompile(`\brecent\b`)
	lastNDaysPattern   = regexp.MustCompile(`\blast (\d+) days?\b`)
	lastNMonthsPattern = regexp.MustCompile(`\blast (\d+) months?\b`)
	monthYearPattern   = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
	monthNumbers       = map[string]int{
		"january": 1, "february": 2, "march": 3, "april": 4,
		"may": 5, "june": 6, "july": 7, "august": 8,
		"september": 9, "october": 10, "november": 11, "december": 12,
	}
)

// extractTimeReference mirrors extract_time_reference, translated to the
// Postgres dialect (the original emits MySQL's YEAR()/DATE_SUB/CURDATE).
func (c *Classifier) extractTimeReference(query string) *TimeReference {
	lower := strings.ToLower(query)

	if lastYearPattern.MatchString(lower) {
		return &TimeReference{Kind: "last_year", SQL: "EXTRACT(YEAR FROM claims.created_at) = EXTRACT(YEAR FROM CURRENT_DATE) - 1"}
	}
	if thisYearPattern.MatchString(lower) {
		return &TimeReference{Kind: "this_year", SQL: "EXTRACT(YEAR FROM claims.created_at) = EXTRACT(YEAR FROM CURRENT_DATE)"}
	}
	if recentPattern.MatchString(lower) {
		return &TimeReference{Kind: "recent", SQL: "claims.created_at >= CURRENT_DATE - INTERVAL '90 days'"}
	}
	if m := lastNDaysPattern.FindStringSubmatch(lower); m != nil {
		return &TimeReference{Kind: "last_n_days", SQL: "claims.created_at >= CURRENT_DATE - INTERVAL '" + m[1] + " days'"}
	}
	if m := lastNMonthsPattern.FindStringSubmatch(lower); m != nil {
		return &TimeReference{Kind: "last_n_months", SQL: "claims.created_at >= CURRENT_DATE - INTERVAL '" + m[1] + " months'"}
	}
	if m := monthYearPattern.FindStringSubmatch(lower); m != nil {
		year := m[2]
		monthNum := strconv.Itoa(monthNumbers[m[1]])
		return &TimeReference{
			Kind: "specific_month",
			SQL: "EXTRACT(YEAR FROM claims.created_at) = " + year + " AND EXTRACT(MONTH FROM claims.created_at) = " + monthNum,
		}
	}
	return nil
}

var (
	topNPattern        = regexp.MustCompile(`\btop (\d+)\b`)
	mostCommonOrHighest = regexp.MustCompile(`\bmost common\b|\bhighest\b`)
)

func (c *Classifier) extractTopN(query string) *int {
	lower := strings.ToLower(query)

	if m := topNPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return &n
		}
	}
	if mostCommonOrHighest.MatchString(lower) {
		one := 1
		return &one
	}
	return nil
}

var (
	costWordPattern       = regexp.MustCompile(`\bcost\b`)
	costQualifierPattern  = regexp.MustCompile(`\b(total|average|avg|sum)\b`)
	topBarePattern        = regexp.MustCompile(`\btop\b`)
	topNExactPattern      = regexp.MustCompile(`\btop \d+\b`)
	casesPattern          = regexp.MustCompile(`\bcases\b`)
	claimsOrEncounterPat  = regexp.MustCompile(`\b(claims|encounters)\b`)
)

// needsClarification mirrors needs_clarification's four ambiguity checks.
func (c *Classifier) needsClarification(query string, intent Intent) string {
	lower := strings.ToLower(query)

	if intent == IntentCostFinancial && costWordPattern.MatchString(lower) && !costQualifierPattern.MatchString(lower) {
		return "Do you want the total cost or average cost per diagnosis?"
	}
	if recentPattern.MatchString(lower) {
		return "What timeframe do you mean by 'recent'? (e.g., last 30 days, last 3 months)"
	}
	if intent == IntentFrequencyVolume && topBarePattern.MatchString(lower) && !topNExactPattern.MatchString(lower) {
		return "How many top results do you want? (e.g., top 10, top 5)"
	}
	if casesPattern.MatchString(lower) && !claimsOrEncounterPat.MatchString(lower) {
		return "Do you mean clinical cases (encounters) or administrative claims?"
	}
	return ""
}
