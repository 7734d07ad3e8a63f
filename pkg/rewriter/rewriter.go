// Package rewriter applies soft correction rules to candidate SQL: fixes
// that are always safe to apply automatically, as opposed to the hard
// blocking checks in pkg/safety. Idempotent — running it twice on its own
// output produces the same SQL.
package rewriter

import (
	"regexp"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/sqlgen"
)

// stateKeywords mirrors sql_rewriter.py's state_keywords list, used to
// decide whether a placeholder state filter should be stripped.
var stateKeywords = []string{
	"zamfara", "kano", "kogi", "kaduna", "fct", "abuja", "adamawa",
	"sokoto", "rivers", "osun", "lagos", "state", "states",
}

var frequencyKeywords = []string{
	"most common", "top", "highest", "count", "number of",
}

// Result is the outcome of a rewrite pass.
type Result struct {
	SQL       string
	Rewritten bool
	Error     string
}

// Rewriter is stateless; safe to share across goroutines.
type Rewriter struct{}

// New creates a Rewriter.
func New() *Rewriter { return &Rewriter{} }

var (
	duplicateDistinctCall = regexp.MustCompile(`(?i)COUNT\s*\(\s*DISTINCT\s+DISTINCT\s+`)
	placeholderStateWhere = regexp.MustCompile(`(?i)WHERE\s+s\.name\s+LIKE\s+'%STATENAME%'`)
	usersJoin             = regexp.MustCompile(`(?i)\s+JOIN\s+users\s+u\s+ON\s+c\.user_id\s*=\s*u\.id`)
	statesJoin            = regexp.MustCompile(`(?i)\s+JOIN\s+states\s+s\s+ON\s+u\.state\s*=\s*s\.id`)
	groupByIDAlias        = regexp.MustCompile(`(?i)GROUP\s+BY\s+([^,\s]+)\.id`)
	countIDCall           = regexp.MustCompile(`(?i)COUNT\s*\(\s*([^)]+\.id)\s*\)`)
	duplicateDistinctWord = regexp.MustCompile(`(?i)DISTINCT\s+DISTINCT`)
)

func diagnosesAliasJoin(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)JOIN\s+diagnoses\s+(?:AS\s+)?` + regexp.QuoteMeta(alias) + `\b`)
}

func providersAliasJoin(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)JOIN\s+providers\s+(?:AS\s+)?` + regexp.QuoteMeta(alias) + `\b`)
}

// Rewrite applies every correction rule in order, ported from
// sql_rewriter.py's SQLRewriter.rewrite.
func (r *Rewriter) Rewrite(sql, query string) Result {
	if sql == "" {
		return Result{SQL: sql, Error: "no SQL query provided"}
	}

	original := sql
	rewritten := false
	queryLower := strings.ToLower(query)
	isStateQuery := containsAny(queryLower, stateKeywords)

	if next := duplicateDistinctCall.ReplaceAllString(sql, "COUNT(DISTINCT "); next != sql {
		sql = next
		rewritten = true
	}

	if !isStateQuery {
		if next := placeholderStateWhere.ReplaceAllString(sql, ""); next != sql {
			sql = next
			rewritten = true
		}
		next := usersJoin.ReplaceAllString(sql, "")
		next = statesJoin.ReplaceAllString(next, "")
		if next != sql {
			sql = next
			rewritten = true
		}
	}

	upper := strings.ToUpper(sql)
	if strings.Contains(upper, "GROUP BY") && strings.Contains(upper, "DIAGNOSES") {
		if next := rewriteGroupByAlias(sql, diagnosesAliasJoin, "name"); next != sql {
			sql = next
			rewritten = true
		}
	}

	upper = strings.ToUpper(sql)
	if strings.Contains(upper, "GROUP BY") && strings.Contains(upper, "PROVIDERS") {
		if next := rewriteGroupByAlias(sql, providersAliasJoin, "provider_id"); next != sql {
			sql = next
			rewritten = true
		}
	}

	upper = strings.ToUpper(sql)
	if strings.Contains(upper, "COUNT") && strings.Contains(upper, "CLAIMS") && containsAny(queryLower, frequencyKeywords) {
		if next := addDistinctToClaimsCount(sql); next != sql {
			sql = next
			rewritten = true
		}
	}

	if rewritten {
		if strings.TrimSpace(sql) == "" {
			return Result{SQL: original, Error: "rewrite resulted in empty SQL"}
		}
		if !strings.Contains(strings.ToUpper(sql), "SELECT") {
			return Result{SQL: original, Error: "rewrite removed SELECT clause"}
		}
	}

	if final := duplicateDistinctWord.ReplaceAllString(sql, "DISTINCT"); final != sql {
		sql = final
		rewritten = true
	}

	return Result{SQL: sql, Rewritten: rewritten}
}

// rewriteGroupByAlias replaces "GROUP BY <alias>.id" with
// "GROUP BY <alias>.<replacement>" only when <alias> is actually bound to
// the table the aliasJoin pattern checks for.
func rewriteGroupByAlias(sql string, aliasJoin func(string) *regexp.Regexp, replacement string) string {
	return groupByIDAlias.ReplaceAllStringFunc(sql, func(match string) string {
		sub := groupByIDAlias.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		alias := sub[1]
		if aliasJoin(alias).MatchString(sql) {
			return "GROUP BY " + alias + "." + replacement
		}
		return match
	})
}

func addDistinctToClaimsCount(sql string) string {
	return countIDCall.ReplaceAllStringFunc(sql, func(match string) string {
		sub := countIDCall.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		col := sub[1]
		lower := strings.ToLower(match)
		if strings.Contains(lower, "c.id") || strings.Contains(lower, "claims.id") {
			return "COUNT(DISTINCT " + col + ")"
		}
		return match
	})
}

func containsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// Apply runs Rewrite over a sqlgen.Candidate and returns the corrected
// Candidate. Pure: it never mutates the input, and discards back to the
// original SQL if the rewrite pass reports an error.
func (r *Rewriter) Apply(candidate sqlgen.Candidate, query string) sqlgen.Candidate {
	result := r.Rewrite(candidate.SQL, query)
	if result.Error != "" {
		return candidate
	}
	candidate.SQL = result.SQL
	return candidate
}
