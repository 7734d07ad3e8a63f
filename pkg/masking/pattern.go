// Package masking compiles and applies PII-value masking patterns used by
// the result sanitizer before a query result ever leaves the process.
package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// builtinPatterns are the PII value patterns applied to every cell of a
// sanitized result row. Phone numbers keep their trailing four digits so an
// analyst can still cross-reference a masked value against a ticket; emails
// are fully replaced since any surviving fragment is enough to re-identify.
var builtinPatterns = []CompiledPattern{
	{
		Name:        "email",
		Regex:       regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		Replacement: "***@***.***",
		Description: "email address",
	},
	{
		Name:        "phone",
		Regex:       regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?(\d{4})\b`),
		Replacement: "***-***-$1",
		Description: "US-format phone number, trailing four digits preserved",
	},
	{
		Name:        "ssn",
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-(\d{4})\b`),
		Replacement: "***-**-$1",
		Description: "social security number, trailing four digits preserved",
	},
}
