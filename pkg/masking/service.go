package masking

import "log/slog"

// Service applies PII value masking to free-text cell values. Created once
// at startup (singleton), stateless aside from its compiled patterns, safe
// for concurrent use by every in-flight request.
type Service struct {
	patterns []CompiledPattern
}

// NewService returns a Service over the built-in PII patterns. Those are
// compiled at package initialization, so a bad pattern fails at program
// start rather than mid-request.
func NewService() *Service {
	s := &Service{patterns: builtinPatterns}
	slog.Info("PII masking service initialized", "patterns", len(s.patterns))
	return s
}

// MaskValue applies every compiled pattern to a single cell value in turn.
// Masking here is fail-open by construction: regex replacement cannot error,
// unlike the kubernetes-manifest masking this package's teacher design
// handled, so there is no redaction-on-failure path to model.
func (s *Service) MaskValue(value string) string {
	masked := value
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
