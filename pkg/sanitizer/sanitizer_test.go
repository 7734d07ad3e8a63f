package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
)

func defaultConfig() config.SanitizerConfig {
	return config.SanitizerConfig{
		SmallCellColumns:  []string{"count", "claim_count"},
		SmallCellMin:      1,
		SmallCellMax:      4,
		SmallCellSentinel: "<5",
	}
}

func TestSanitizeHidesIDColumns(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{
		{"id": 1, "claim_id": 2, "diagnosis": "Malaria"},
	}
	out := s.Sanitize([]string{"id", "claim_id", "diagnosis"}, rows)
	require.Len(t, out, 1)
	_, hasID := out[0].Values["id"]
	_, hasClaimID := out[0].Values["Claim Id"]
	assert.False(t, hasID)
	assert.False(t, hasClaimID)
	assert.Equal(t, "Malaria", out[0].Values["Diagnosis"])
}

func TestSanitizeKeepsProviderID(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{{"provider_id": "P-100", "total_cost": 500}}
	out := s.Sanitize([]string{"provider_id", "total_cost"}, rows)
	require.Len(t, out, 1)
	assert.Equal(t, "P-100", out[0].Values["Provider ID"])
	assert.Equal(t, 500, out[0].Values["Total Cost"])
}

func TestSanitizeRenamesKnownColumns(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{{"avg_claim_cost": 12.5}}
	out := s.Sanitize([]string{"avg_claim_cost"}, rows)
	require.Len(t, out, 1)
	assert.Equal(t, 12.5, out[0].Values["Average Claim Cost"])
}

func TestSanitizeTitleCasesUnknownColumns(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{{"unusual_metric": 7}}
	out := s.Sanitize([]string{"unusual_metric"}, rows)
	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0].Values["Unusual Metric"])
}

func TestSanitizeSuppressesSmallCellCounts(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{
		{"claim_count": 3},
		{"claim_count": 42},
	}
	out := s.Sanitize([]string{"claim_count"}, rows)
	require.Len(t, out, 2)
	assert.Equal(t, "<5", out[0].Values["Claim Count"])
	assert.Equal(t, 42, out[1].Values["Claim Count"])
}

func TestSanitizeMasksPIIValues(t *testing.T) {
	s := New(defaultConfig(), masking.NewService())
	rows := []map[string]any{{"contact_email": "jane.doe@example.com"}}
	out := s.Sanitize([]string{"contact_email"}, rows)
	require.Len(t, out, 1)
	assert.Equal(t, "***@***.***", out[0].Values["Contact Email"])
}

func TestSanitizeEmptyResultsReturnsNil(t *testing.T) {
	s := New(defaultConfig(), nil)
	out := s.Sanitize([]string{"id"}, nil)
	assert.Nil(t, out)
}

func TestSanitizeIsIdempotentOnColumnHiding(t *testing.T) {
	s := New(defaultConfig(), nil)
	rows := []map[string]any{{"id": 1, "diagnosis": "Malaria"}}
	first := s.Sanitize([]string{"id", "diagnosis"}, rows)
	require.Len(t, first, 1)

	secondRow := map[string]any{}
	for _, c := range first[0].Columns {
		secondRow[c] = first[0].Values[c]
	}
	second := s.Sanitize(first[0].Columns, []map[string]any{secondRow})
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Values, second[0].Values)
}
