package router

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentRouterFastPaths(t *testing.T) {
	r := NewIntentRouter(nil)
	ctx := context.Background()

	assert.Equal(t, IntentChat, r.Classify(ctx, "hello"))
	assert.Equal(t, IntentChat, r.Classify(ctx, "how are you"))
	assert.Equal(t, IntentChat, r.Classify(ctx, ""))
	assert.Equal(t, IntentChat, r.Classify(ctx, "   "))
	assert.Equal(t, IntentData, r.Classify(ctx, "show me claims by state"))
	assert.Equal(t, IntentData, r.Classify(ctx, "how many claims were filed last month"))
}

func TestIntentRouterCapabilityQuestionFallsBackToChatWithoutOracle(t *testing.T) {
	r := NewIntentRouter(nil)
	got := r.Classify(context.Background(), "what can you do with claims data")
	assert.Equal(t, IntentChat, got)
}

func TestIntentRouterIsTotal(t *testing.T) {
	r := NewIntentRouter(nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		n := rng.Intn(40)
		buf := make([]byte, n)
		for j := range buf {
			buf[j] = byte(32 + rng.Intn(94))
		}
		got := r.Classify(ctx, string(buf))
		assert.True(t, got == IntentData || got == IntentChat)
	}
}
