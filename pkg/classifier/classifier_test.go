package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntentOrdering(t *testing.T) {
	c := New()

	assert.Equal(t, IntentServiceUtilization, c.Classify("what services were used for malaria treatment").Intent)
	assert.Equal(t, IntentCostFinancial, c.Classify("what is the total cost of claims").Intent)
	assert.Equal(t, IntentTrendTimeSeries, c.Classify("show the monthly trend of claims").Intent)
	assert.Equal(t, IntentFrequencyVolume, c.Classify("how many claims were filed").Intent)
	assert.Equal(t, IntentFrequencyVolume, c.Classify("top diagnoses this year").Intent)
	assert.Equal(t, IntentUnknown, c.Classify("xyz").Intent)
}

func TestExtractTimeReference(t *testing.T) {
	c := New()

	ref := c.Classify("claims last year").TimeReference
	require.NotNil(t, ref)
	assert.Equal(t, "last_year", ref.Kind)

	ref = c.Classify("claims in the last 30 days").TimeReference
	require.NotNil(t, ref)
	assert.Equal(t, "last_n_days", ref.Kind)
	assert.Contains(t, ref.SQL, "30 days")

	ref = c.Classify("claims in March 2024").TimeReference
	require.NotNil(t, ref)
	assert.Equal(t, "specific_month", ref.Kind)
	assert.Contains(t, ref.SQL, "2024")
}

func TestExtractTopN(t *testing.T) {
	c := New()

	n := c.Classify("top 10 diagnoses").TopN
	require.NotNil(t, n)
	assert.Equal(t, 10, *n)

	n = c.Classify("most common diagnosis").TopN
	require.NotNil(t, n)
	assert.Equal(t, 1, *n)

	n = c.Classify("how many claims").TopN
	assert.Nil(t, n)
}

func TestNeedsClarification(t *testing.T) {
	c := New()

	got := c.Classify("what is the cost of claims")
	assert.Contains(t, got.NeedsClarify, "total cost or average")

	got = c.Classify("show me recent claims")
	assert.Contains(t, got.NeedsClarify, "timeframe")

	got = c.Classify("top diagnoses")
	assert.Contains(t, got.NeedsClarify, "top results")

	got = c.Classify("how many cases were filed")
	assert.Contains(t, got.NeedsClarify, "clinical cases")

	got = c.Classify("how many claims were filed last month")
	assert.Empty(t, got.NeedsClarify)
}
