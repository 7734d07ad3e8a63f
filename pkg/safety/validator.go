// Package safety runs the five hard-blocking checks every candidate SQL
// statement must pass before it ever reaches the warehouse: forbidden
// operations, multi-statement injection, cartesian joins, role-based table
// access, and PII column exposure.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// ViolationKind distinguishes why a candidate was refused.
type ViolationKind string

const (
	ViolationForbiddenOperation ViolationKind = "forbidden_operation"
	ViolationMultiStatement     ViolationKind = "multi_statement"
	ViolationCartesianJoin      ViolationKind = "cartesian_join"
	ViolationRole               ViolationKind = "role_violation"
	ViolationPIIExposure        ViolationKind = "pii_exposure"
)

// Violation is a single safety failure.
type Violation struct {
	Kind   ViolationKind
	Reason string
}

func (v *Violation) Error() string {
	return v.Reason
}

// PIIColumns lists column-name fragments that mark a column as personally
// identifying, ported verbatim from safety_governance.py's PII_COLUMNS.
var PIIColumns = []string{
	"email", "phone", "phone_number", "nimc", "nimc_number",
	"salary", "salary_number", "ssn", "password", "pin",
	"credit_card", "bank_account", "personal_information",
}

// forbiddenOperations are the only DML/DDL verbs ever rejected outright;
// everything else must be a SELECT, which is enforced implicitly by
// rejecting every mutating verb rather than allow-listing SELECT syntax.
var forbiddenOperations = []string{
	"DELETE", "UPDATE", "DROP", "TRUNCATE", "ALTER", "CREATE",
	"INSERT", "GRANT", "REVOKE", "EXEC", "EXECUTE",
}

// RoleTableAccess maps a role name to its allowed table set. A nil slice
// value (only ever set for "admin") means unrestricted access.
var RoleTableAccess = map[string][]string{
	"admin": nil,
	"analyst": {
		"claims", "service_summaries", "service_summary_diagnosis",
		"diagnoses", "claims_services", "services", "providers",
		"users", "states",
	},
	"public": {"diagnoses", "services"},
}

var stateNames = []string{
	"zamfara", "kano", "kogi", "kaduna", "fct", "abuja", "adamawa",
	"sokoto", "rivers", "osun", "lagos", "state", "states",
}

var userDetailPhrases = []string{
	"user details", "user information", "user profile", "which user", "who is the user",
}

// sensitiveKeywords are the utterance-side signals of PII intent, ported
// verbatim from safety_governance.py's check_sensitive_data_access keyword
// list. A PII-flagged column in the SQL is only rejected when the utterance
// also trips one of these — otherwise a query like "list provider contact
// records" would be refused for a column it never asked about.
var sensitiveKeywords = []string{
	"email", "phone", "nimc", "salary", "ssn", "password",
	"credit card", "bank account", "personal information",
}

// Validator runs every check in order, ported from
// safety_governance.py's validate_query_safety / check_role_permissions /
// identify_pii_columns.
type Validator struct{}

// New creates a Validator. Stateless.
func New() *Validator { return &Validator{} }

// Validate runs the full ordered check sequence. Returns the first
// violation encountered, or nil if the candidate is safe.
func (v *Validator) Validate(sql string, tables []string, role, utterance string) *Violation {
	if violation := v.checkForbiddenOperations(sql); violation != nil {
		return violation
	}
	if violation := v.checkMultiStatement(sql); violation != nil {
		return violation
	}
	if violation := v.checkCartesianJoin(sql); violation != nil {
		return violation
	}
	if violation := v.CheckRolePermissions(role, tables, utterance); violation != nil {
		return violation
	}
	if violation := v.checkPIIExposure(sql, utterance); violation != nil {
		return violation
	}
	return nil
}

var forbiddenPatterns = compilePatterns(forbiddenOperations)

func compilePatterns(words []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		out[w] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return out
}

func (v *Validator) checkForbiddenOperations(sql string) *Violation {
	upper := strings.ToUpper(sql)
	for _, op := range forbiddenOperations {
		if forbiddenPatterns[op].MatchString(upper) {
			return &Violation{
				Kind:   ViolationForbiddenOperation,
				Reason: fmt.Sprintf("query contains forbidden operation: %s. Only SELECT queries are allowed.", op),
			}
		}
	}
	return nil
}

// checkMultiStatement rejects a second statement appended after a
// statement-terminating semicolon — the SQL injection shape the Python
// original's word-boundary check alone would miss.
func (v *Validator) checkMultiStatement(sql string) *Violation {
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	if strings.Contains(trimmed, ";") {
		return &Violation{
			Kind:   ViolationMultiStatement,
			Reason: "query contains multiple statements; only a single SELECT is allowed.",
		}
	}
	return nil
}

var (
	joinPattern = regexp.MustCompile(`\bJOIN\b`)
	onPattern   = regexp.MustCompile(`\bON\b`)
)

func (v *Validator) checkCartesianJoin(sql string) *Violation {
	upper := strings.ToUpper(sql)
	if !joinPattern.MatchString(upper) {
		return nil
	}
	joinCount := len(joinPattern.FindAllString(upper, -1))
	onCount := len(onPattern.FindAllString(upper, -1))
	if joinCount > onCount {
		return &Violation{
			Kind:   ViolationCartesianJoin,
			Reason: "query contains a cartesian join (missing ON clause); all joins must have explicit join conditions.",
		}
	}
	return nil
}

// CheckRolePermissions checks the candidate's referenced table list against
// the role's allow-list. Validate runs it as its fourth check; it is also
// exported so the role check can be run on its own.
func (v *Validator) CheckRolePermissions(role string, tables []string, utterance string) *Violation {
	allowed, ok := RoleTableAccess[role]
	if !ok {
		return &Violation{Kind: ViolationRole, Reason: fmt.Sprintf("unknown user role: %s", role)}
	}
	if allowed == nil && role == "admin" {
		return nil
	}

	lower := strings.ToLower(utterance)
	isStateQuery := containsAny(lower, stateNames)
	isUserDetailQuery := containsAny(lower, userDetailPhrases)

	allowedLower := toLowerSet(allowed)

	for _, table := range tables {
		tableLower := strings.ToLower(table)
		if role == "analyst" && (tableLower == "users" || tableLower == "states") {
			if isStateQuery && !isUserDetailQuery {
				continue
			}
			return &Violation{
				Kind: ViolationRole,
				Reason: fmt.Sprintf(
					"role %q does not have permission to access table %q for user details; state filtering is allowed, but user detail queries are restricted.",
					role, table,
				),
			}
		}

		if allowedLower[tableLower] {
			continue
		}

		return &Violation{
			Kind: ViolationRole,
			Reason: fmt.Sprintf(
				"role %q does not have permission to access table %q. Allowed tables: %s",
				role, table, strings.Join(allowed, ", "),
			),
		}
	}

	return nil
}

// IdentifyPIIColumns returns every PII column fragment referenced anywhere
// in the SQL text.
func (v *Validator) IdentifyPIIColumns(sql string) []string {
	if sql == "" {
		return nil
	}
	upper := strings.ToUpper(sql)
	var found []string
	for _, col := range PIIColumns {
		pattern := regexp.MustCompile(`(?i)\b` + col + `\b`)
		if pattern.MatchString(upper) {
			found = append(found, col)
		}
	}
	return found
}

// checkPIIExposure only rejects when the utterance itself signals sensitive-
// data intent AND the candidate SQL selects a PII-flagged column — mirroring
// check_sensitive_data_access's conjunction rather than flagging any PII
// column regardless of what the user actually asked for.
func (v *Validator) checkPIIExposure(sql, utterance string) *Violation {
	if !containsAny(strings.ToLower(utterance), sensitiveKeywords) {
		return nil
	}
	found := v.IdentifyPIIColumns(sql)
	if len(found) == 0 {
		return nil
	}
	return &Violation{
		Kind:   ViolationPIIExposure,
		Reason: fmt.Sprintf("query attempts to access restricted data: %s.", strings.Join(found, ", ")),
	}
}

func containsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func toLowerSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[strings.ToLower(it)] = true
	}
	return out
}
