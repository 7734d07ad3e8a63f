package sqlgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
)

func TestJaccardSimilarityIdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, jaccardSimilarity("top diagnoses this year", "top diagnoses this year"))
}

func TestJaccardSimilarityDisjointStrings(t *testing.T) {
	assert.Equal(t, 0.0, jaccardSimilarity("top diagnoses", "provider revenue"))
}

func TestMatchTemplateHitsFrequencyTemplate(t *testing.T) {
	tmpl, score, ok := matchTemplate("what are the top diagnoses this year", classifier.IntentFrequencyVolume, catalog.DomainClaimsDiagnosis)
	require.True(t, ok)
	assert.Greater(t, score, matchThreshold)
	assert.Contains(t, tmpl.SQL, "diagnoses")
}

func TestMatchTemplateMissesUnrelatedDomain(t *testing.T) {
	_, _, ok := matchTemplate("what are the top diagnoses this year", classifier.IntentFrequencyVolume, catalog.DomainProviders)
	assert.False(t, ok)
}

func TestGeneratePrefersTemplateOverLLM(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("LLM oracle should not be called when a template matches")
	}))
	defer server.Close()

	oracle := llmoracle.New(server.URL, "", "test-model", time.Second, 1)
	g := New(oracle, "postgres")

	candidate, err := g.Generate(context.Background(), "most common diagnoses", classifier.IntentFrequencyVolume, catalog.DomainClaimsDiagnosis, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, candidate.Source)
}

func TestGenerateFallsBackToLLMWhenNoTemplateMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"sql\": \"SELECT * FROM claims\", \"explanation\": \"all claims\", \"confidence\": 0.8}"}}]}`))
	}))
	defer server.Close()

	oracle := llmoracle.New(server.URL, "", "test-model", time.Second, 1)
	g := New(oracle, "postgres")

	candidate, err := g.Generate(context.Background(), "something entirely unrelated to any template", classifier.IntentUnknown, catalog.DomainClaimsDiagnosis, nil, []string{"claims"}, "")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, candidate.Source)
	assert.Equal(t, "SELECT * FROM claims", candidate.SQL)
}

func TestParseLLMResponseFallsBackToRegexWhenNotJSON(t *testing.T) {
	candidate, err := parseLLMResponse("Sure! SELECT id FROM claims WHERE cost > 100;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM claims WHERE cost > 100", candidate.SQL)
	assert.Equal(t, SourceLLM, candidate.Source)
}

func TestParseLLMResponseRejectsNonSelect(t *testing.T) {
	_, err := parseLLMResponse(`{"sql": "DELETE FROM claims", "explanation": "x", "confidence": 0.9}`)
	assert.Error(t, err)
}
