package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
	"github.com/codeready-toolchain/tarsy/pkg/conversation"
	"github.com/codeready-toolchain/tarsy/pkg/executor"
	"github.com/codeready-toolchain/tarsy/pkg/insight"
	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
	"github.com/codeready-toolchain/tarsy/pkg/rewriter"
	"github.com/codeready-toolchain/tarsy/pkg/router"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
	"github.com/codeready-toolchain/tarsy/pkg/sanitizer"
	"github.com/codeready-toolchain/tarsy/pkg/sqlgen"
)

// chatSystemPrompt is the conversational fallback prompt, ported from
// chat_handler.py's "standard LLM without MCP tools" framing.
const chatSystemPrompt = `You are a helpful assistant for a healthcare claims analytics gateway. Answer general questions conversationally. If the user asks about claims, diagnoses, providers, or costs, suggest they ask a specific data question instead.`

// Orchestrator sequences every stage into the explicit state machine: intent
// routing through narration. One Orchestrator is built once at startup and
// is safe for concurrent use — nothing here is per-request state except the
// RequestContext passed into Handle.
type Orchestrator struct {
	intentRouter *router.IntentRouter
	domainRouter *router.DomainRouter
	classifier   *classifier.Classifier
	generator    *sqlgen.Generator
	validator    *safety.Validator
	rewriter     *rewriter.Rewriter
	executor     *executor.Executor
	sanitizer    *sanitizer.Sanitizer
	insight      *insight.Generator
	store        *conversation.Store
	oracle       *llmoracle.Client
	catalogue    *catalog.Catalogue

	// Session cancel registry, grounded on the teacher's
	// queue.WorkerPool.activeSessions: lets an admin-triggered cancel
	// (e.g. a client disconnect or an abuse-stop) reach an in-flight
	// request by session ID without plumbing a channel through every stage.
	mu             sync.RWMutex
	activeSessions map[string]context.CancelFunc
}

// New wires every stage dependency into one Orchestrator. Any dependency
// may be nil where that stage's own zero-value behavior is well-defined
// (e.g. a nil oracle makes the LLM-fallback paths degrade gracefully).
func New(
	intentRouter *router.IntentRouter,
	domainRouter *router.DomainRouter,
	classifierSvc *classifier.Classifier,
	generator *sqlgen.Generator,
	validator *safety.Validator,
	rewriterSvc *rewriter.Rewriter,
	executorSvc *executor.Executor,
	sanitizerSvc *sanitizer.Sanitizer,
	insightSvc *insight.Generator,
	store *conversation.Store,
	oracle *llmoracle.Client,
	catalogue *catalog.Catalogue,
) *Orchestrator {
	return &Orchestrator{
		intentRouter:   intentRouter,
		domainRouter:   domainRouter,
		classifier:     classifierSvc,
		generator:      generator,
		validator:      validator,
		rewriter:       rewriterSvc,
		executor:       executorSvc,
		sanitizer:      sanitizerSvc,
		insight:        insightSvc,
		store:          store,
		oracle:         oracle,
		catalogue:      catalogue,
		activeSessions: make(map[string]context.CancelFunc),
	}
}

// registerCancel records a cancel function under the given session ID so
// CancelSession can reach it, and returns a cleanup func the caller must
// defer. A blank session ID (anonymous requests) is never registered.
func (o *Orchestrator) registerCancel(sessionID string, cancel context.CancelFunc) func() {
	if sessionID == "" {
		return func() {}
	}
	o.mu.Lock()
	o.activeSessions[sessionID] = cancel
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.activeSessions, sessionID)
		o.mu.Unlock()
	}
}

// CancelSession cancels an in-flight request for the given session ID, if
// one is currently running. Returns true if a request was found and
// cancelled.
func (o *Orchestrator) CancelSession(sessionID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if cancel, ok := o.activeSessions[sessionID]; ok {
		cancel()
		return true
	}
	return false
}

// Handle runs the full state machine for one request and returns a tagged
// terminal Outcome. Never panics; every stage failure is mapped to a
// Refused or Failed Outcome instead.
func (o *Orchestrator) Handle(rc *RequestContext) Outcome {
	rc.record(StageReceived, StatusOK, "")

	if strings.TrimSpace(rc.Utterance) == "" {
		rc.record(StageReceived, StatusFailed, "empty utterance")
		return failed(ErrorInvalidInput, "query must not be empty")
	}

	ctx, cancel := context.WithCancel(rc.Ctx)
	defer cancel()
	unregister := o.registerCancel(rc.SessionID, cancel)
	defer unregister()
	rc.Ctx = ctx

	session := o.session(rc.SessionID)
	historySummary := ""
	if session != nil {
		historySummary, _ = session.Summary()
	}

	intent := o.intentRouter.Classify(rc.Ctx, rc.Utterance)
	rc.record(StageIntentRouted, StatusOK, string(intent))

	if intent == router.IntentChat {
		return o.handleChat(rc, session)
	}

	domainDecision := o.domainRouter.Route(rc.Utterance)
	if domainDecision.Rejected {
		rc.record(StageDomainRouted, StatusRefused, domainDecision.RejectionReason)
		return Outcome{Kind: OutcomeRefused, Reason: domainDecision.RejectionReason, ErrorKind: ErrorOutOfScope}
	}
	rc.record(StageDomainRouted, StatusOK, string(domainDecision.Domain))

	classification := o.classifier.Classify(rc.Utterance)
	if classification.NeedsClarify != "" {
		rc.record(StageIntentClassified, StatusRefused, classification.NeedsClarify)
		return Outcome{Kind: OutcomeRefused, Reason: classification.NeedsClarify, ErrorKind: ErrorClarification}
	}
	rc.record(StageIntentClassified, StatusOK, string(classification.Intent))

	schema := o.schemaOrNil()

	candidate, err := o.generator.Generate(rc.Ctx, rc.Utterance, classification.Intent, domainDecision.Domain, schema, domainDecision.DetectedTables, historySummary)
	if err != nil {
		rc.record(StageSQLGenerated, StatusFailed, err.Error())
		return failed(ErrorGenerationFailure, "could not generate a SQL query for this question")
	}
	candidate = bindTemplateParams(candidate, classification, rc.Utterance)
	rc.record(StageSQLGenerated, StatusOK, string(candidate.Source))

	if violation := o.validator.Validate(candidate.SQL, referencedTables(candidate.SQL), rc.Role, rc.Utterance); violation != nil {
		rc.record(StageSQLValidated, StatusRefused, violation.Reason)
		return Outcome{Kind: OutcomeRefused, Reason: violation.Reason, ErrorKind: ErrorSafetyViolation}
	}
	rc.record(StageSQLValidated, StatusOK, "")

	candidate = o.rewriter.Apply(candidate, rc.Utterance)
	rc.record(StageSQLRewritten, StatusOK, "")

	result, err := o.executor.Execute(rc.Ctx, candidate.SQL, candidate.Params)
	if err != nil {
		rc.record(StageExecuted, StatusFailed, err.Error())
		return failed(ErrorExecutionError, "the query could not be executed against the warehouse")
	}
	rc.record(StageExecuted, StatusOK, fmt.Sprintf("%d rows", len(result.Rows)))

	sanitizedRows := o.sanitizer.Sanitize(result.Columns, result.Rows)
	rc.record(StageSanitized, StatusOK, "")

	plainRows, columns := flattenRows(sanitizedRows)
	summary := o.insight.Generate(rc.Ctx, rc.Utterance, plainRows, len(result.Rows))
	rc.record(StageNarrated, StatusOK, "")

	if session != nil {
		session.Append(conversation.RoleUser, rc.Utterance, rc.Branch)
		session.Append(conversation.RoleAssistant, summary, rc.Branch)
	}

	rc.record(StageResponded, StatusOK, "")
	return responded(candidate.SQL, candidate.Explanation, candidate.Confidence, len(result.Rows), plainRows, columns, summary, string(candidate.Source), result.Truncated)
}

func (o *Orchestrator) handleChat(rc *RequestContext, session *conversation.Session) Outcome {
	if o.oracle == nil {
		rc.record(StageNarrated, StatusOK, "no oracle configured")
		rc.record(StageResponded, StatusOK, "")
		return respondedChat("I'm here to help with healthcare claims questions. Ask me about claims, diagnoses, providers, or costs.")
	}

	messages := []llmoracle.Message{{Role: "system", Content: chatSystemPrompt}}
	if session != nil {
		for _, m := range session.History(5) {
			messages = append(messages, llmoracle.Message{Role: string(m.Role), Content: m.Content})
		}
	}
	messages = append(messages, llmoracle.Message{Role: "user", Content: rc.Utterance})

	resp, err := o.oracle.Complete(rc.Ctx, llmoracle.Request{Messages: messages, Temperature: 0.7, MaxTokens: 500})
	if err != nil {
		rc.record(StageNarrated, StatusFailed, err.Error())
		resp = "I apologize, but I'm having trouble processing your request. Please try again or ask me about data queries."
	} else {
		rc.record(StageNarrated, StatusOK, "")
	}

	if session != nil {
		session.Append(conversation.RoleUser, rc.Utterance, rc.Branch)
		session.Append(conversation.RoleAssistant, resp, rc.Branch)
	}

	rc.record(StageResponded, StatusOK, "")
	return respondedChat(strings.TrimSpace(resp))
}

func (o *Orchestrator) session(sessionID string) *conversation.Session {
	if o.store == nil || sessionID == "" {
		return nil
	}
	return o.store.GetOrCreate(sessionID)
}

func (o *Orchestrator) schemaOrNil() *catalog.Schema {
	if o.catalogue == nil {
		return nil
	}
	return o.catalogue.Current()
}

// defaultTopN is used when a template's :top_n placeholder is reached but
// the classifier found no explicit "top N" phrasing in the utterance.
const defaultTopN = 10

// bindTemplateParams fills the named placeholders a template's SQL may
// contain. The LLM path never leaves a placeholder behind, so this is a
// no-op for SourceLLM candidates.
func bindTemplateParams(candidate sqlgen.Candidate, classification classifier.Classification, utterance string) sqlgen.Candidate {
	if candidate.Source != sqlgen.SourceTemplate {
		return candidate
	}

	params := make(map[string]any, len(candidate.Params)+2)
	for k, v := range candidate.Params {
		params[k] = v
	}

	if strings.Contains(candidate.SQL, ":top_n") {
		topN := defaultTopN
		if classification.TopN != nil {
			topN = *classification.TopN
		}
		params["top_n"] = topN
	}

	if strings.Contains(candidate.SQL, ":diagnosis_pattern") {
		params["diagnosis_pattern"] = "%" + diagnosisPatternFrom(utterance) + "%"
	}

	candidate.Params = params
	return candidate
}

// diagnosisPatternFrom extracts the word following "for"/"of" as a crude
// diagnosis-name guess for the service-utilization template's ILIKE filter,
// falling back to a match-everything pattern when nothing is found.
func diagnosisPatternFrom(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, marker := range []string{"for ", "of ", "treating "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			rest := strings.TrimSpace(lower[idx+len(marker):])
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				return strings.Trim(fields[0], ".,?!")
			}
		}
	}
	return ""
}

var referencedTablePattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

// referencedTables extracts every table name a generated SQL statement
// reads from, for the role-permission check to evaluate against — the
// gateway's schema, not the whole catalogue, bounds what a role may touch.
func referencedTables(sql string) []string {
	matches := referencedTablePattern.FindAllStringSubmatch(sql, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func flattenRows(rows []sanitizer.Row) ([]map[string]any, []string) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out, rows[0].Columns
}
