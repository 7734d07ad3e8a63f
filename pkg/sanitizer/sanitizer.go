// Package sanitizer runs mandatory post-processing on query results before
// they ever leave the process: hides IDs and foreign keys, renames columns
// to business labels, suppresses small cell counts, and masks any PII value
// that still surfaces despite the safety gate.
package sanitizer

import (
	"strconv"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
)

// hiddenColumns are exact-match column names hidden outright, ported from
// result_sanitizer.py's HIDDEN_COLUMNS. provider_id is deliberately absent:
// it is a business label, not a foreign key, and must survive the generic
// "_id" suffix rule below.
var hiddenColumns = map[string]bool{
	"id": true, "diagnosis_id": true, "service_summary_id": true, "claim_id": true,
	"user_id": true, "state_id": true, "diagnosis_code": true,
	"service_id": true, "services_id": true, "claims_id": true,
}

// exemptFromSuffixRule lists _id-suffixed columns that are business labels,
// not foreign keys, and so survive the blanket "_id" suffix hide rule.
var exemptFromSuffixRule = map[string]bool{
	"provider_id": true,
}

// columnRenames maps a raw column name to its business label, ported from
// result_sanitizer.py's COLUMN_RENAMES.
var columnRenames = map[string]string{
	"diagnosis":           "Diagnosis",
	"disease_name":        "Diagnosis",
	"total_claims":        "Total Claims",
	"claim_count":         "Claim Count",
	"avg_claim_cost":      "Average Claim Cost",
	"total_cost":          "Total Cost",
	"usage_count":         "Usage Count",
	"service":             "Service",
	"service_description": "Service",
	"month":               "Month",
	"year":                "Year",
	"provider":            "Provider",
	"provider_id":         "Provider ID",
	"facility":            "Facility",
	"hospital":            "Hospital",
}

// Row is one sanitized result row: ordered column names plus their values,
// since Go maps don't preserve the column order the SELECT clause produced.
type Row struct {
	Columns []string
	Values  map[string]any
}

// Sanitizer applies the column-hiding/renaming pass, small-cell suppression,
// and PII value masking, in that order, to every row of a result set.
type Sanitizer struct {
	cfg    config.SanitizerConfig
	masker *masking.Service
}

// New builds a Sanitizer. masker may be nil, in which case the value-masking
// pass is skipped (useful for tests exercising only column hiding).
func New(cfg config.SanitizerConfig, masker *masking.Service) *Sanitizer {
	return &Sanitizer{cfg: cfg, masker: masker}
}

// Sanitize runs the full pass over a raw result set. columns gives the
// SELECT-clause column order; rows are raw column-name-to-value maps as
// returned by the executor.
func (s *Sanitizer) Sanitize(columns []string, rows []map[string]any) []Row {
	if len(rows) == 0 {
		return nil
	}

	smallCell := s.smallCellColumnSet()

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		var keptCols []string
		values := make(map[string]any, len(row))

		for _, col := range columns {
			if shouldHideColumn(col) {
				continue
			}
			value, ok := row[col]
			if !ok {
				continue
			}

			if smallCell[strings.ToLower(col)] {
				value = s.suppressSmallCell(value)
			}
			if s.masker != nil {
				if str, ok := value.(string); ok {
					value = s.masker.MaskValue(str)
				}
			}

			renamed := renameColumn(col)
			keptCols = append(keptCols, renamed)
			values[renamed] = value
		}

		out = append(out, Row{Columns: keptCols, Values: values})
	}
	return out
}

func (s *Sanitizer) smallCellColumnSet() map[string]bool {
	set := make(map[string]bool, len(s.cfg.SmallCellColumns))
	for _, c := range s.cfg.SmallCellColumns {
		set[strings.ToLower(c)] = true
	}
	return set
}

// suppressSmallCell replaces a small numeric cell count with the configured
// sentinel, a privacy-preserving step the distilled spec dropped from
// result_sanitizer.py but spec.md requires end-to-end.
func (s *Sanitizer) suppressSmallCell(value any) any {
	n, ok := asInt(value)
	if !ok {
		return value
	}
	if n >= s.cfg.SmallCellMin && n <= s.cfg.SmallCellMax {
		return s.cfg.SmallCellSentinel
	}
	return value
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func shouldHideColumn(column string) bool {
	lower := strings.ToLower(column)
	if exemptFromSuffixRule[lower] {
		return false
	}
	if hiddenColumns[lower] {
		return true
	}
	if strings.HasSuffix(lower, "_id") {
		return true
	}
	if lower == "id" {
		return true
	}
	if strings.Contains(lower, "diagnosis_code") {
		return true
	}
	return false
}

func renameColumn(column string) string {
	if label, ok := columnRenames[column]; ok {
		return label
	}
	lower := strings.ToLower(column)
	if label, ok := columnRenames[lower]; ok {
		return label
	}
	return titleCase(strings.ReplaceAll(column, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
