// Package router holds the two classification stages that run before any
// SQL is generated: Intent (DATA vs CHAT) and Domain (which business domain
// a DATA request belongs to, or out-of-scope rejection).
package router

import (
	"context"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
)

// Intent is the two-way classification a request resolves to before any
// further pipeline stage runs.
type Intent string

const (
	IntentData Intent = "DATA"
	IntentChat Intent = "CHAT"
)

// RouterPrompt is the system prompt used for the LLM fallback path, ported
// verbatim in spirit from intent_router.py's ROUTER_PROMPT.
const RouterPrompt = `You are an Intent Classifier. Your only job is to determine if a user wants to talk to the database or have a general conversation.

Categories:

[DATA]: Use this if the user asks for numbers, claims, records, lists, statistics, or status updates on data.

[CHAT]: Use this for greetings ("hi", "hello"), social questions ("how are you"), or asking what the tool can do.

Rules:

Respond ONLY with the tag [DATA] or [CHAT].

If you are unsure, default to [CHAT].

Never execute a command. Just classify.`

var greetings = map[string]bool{
	"hello": true, "hi": true, "hey": true, "good morning": true,
	"good afternoon": true, "good evening": true, "greetings": true,
	"howdy": true, "what's up": true,
}

var socialPatterns = []string{
	"how are you", "how's it going", "what can you do",
	"what are you", "who are you", "help me", "what is this",
}

var dataKeywords = []string{
	"show", "count", "total", "number", "list", "claims",
	"users", "providers", "status", "by", "statistics",
	"records", "data", "query", "find", "get", "display",
	"chart", "graph", "visualization", "top", "bottom",
	"how many", "what is the", "breakdown", "volume",
	"who are", "what are", "transaction", "amount", "per",
	"give me", "tell me", "which", "highest", "lowest",
	"most", "least", "disease", "diagnosis", "patient",
	"state", "kogi", "zamfara", "kano", "lagos", "kaduna",
}

var capabilityPatterns = []string{
	"what can you", "how do i", "how to", "what is this", "what does this",
}

// IntentRouter classifies an utterance as DATA or CHAT. Never returns an error:
// any ambiguity, including an oracle failure, resolves to CHAT — the
// conservative default from intent_router.py's except clause.
type IntentRouter struct {
	oracle *llmoracle.Client
}

// NewIntentRouter creates an IntentRouter. oracle may be nil, in which case
// the LLM fallback path always resolves to CHAT.
func NewIntentRouter(oracle *llmoracle.Client) *IntentRouter {
	return &IntentRouter{oracle: oracle}
}

// Classify is a total function: every input, including empty strings and
// garbage, returns a valid Intent and never panics.
func (r *IntentRouter) Classify(ctx context.Context, utterance string) Intent {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return IntentChat
	}
	lower := strings.ToLower(trimmed)

	if greetings[lower] {
		return IntentChat
	}
	words := strings.Fields(lower)
	if len(words) <= 2 && (lower == "hi" || lower == "hey" || lower == "hello") {
		return IntentChat
	}

	for _, p := range socialPatterns {
		if strings.Contains(lower, p) {
			return IntentChat
		}
	}

	for _, kw := range dataKeywords {
		if strings.Contains(lower, kw) {
			for _, cap := range capabilityPatterns {
				if strings.Contains(lower, cap) {
					return r.llmClassify(ctx, trimmed)
				}
			}
			return IntentData
		}
	}

	return r.llmClassify(ctx, trimmed)
}

func (r *IntentRouter) llmClassify(ctx context.Context, utterance string) Intent {
	if r.oracle == nil {
		return IntentChat
	}

	text, err := r.oracle.Complete(ctx, llmoracle.Request{
		Messages: []llmoracle.Message{
			{Role: "user", Content: RouterPrompt + "\n\nUser Query: " + utterance + "\n\nClassification:"},
		},
		Temperature: 0.0,
		MaxTokens:   10,
	})
	if err != nil {
		return IntentChat
	}

	upper := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.Contains(upper, "[DATA]"):
		return IntentData
	case strings.Contains(upper, "[CHAT]"):
		return IntentChat
	default:
		return IntentChat
	}
}
