// Package pipeline sequences every gateway stage — intent routing through
// narration — into the explicit state machine described by the gateway's
// external contract, threading one request context through each transition.
package pipeline

import (
	"context"
	"time"
)

// Stage names one point in the state machine.
type Stage string

const (
	StageReceived         Stage = "received"
	StageIntentRouted     Stage = "intent_routed"
	StageDomainRouted     Stage = "domain_routed"
	StageIntentClassified Stage = "intent_classified"
	StageSQLGenerated     Stage = "sql_generated"
	StageSQLValidated     Stage = "sql_validated"
	StageSQLRewritten     Stage = "sql_rewritten"
	StageExecuted         Stage = "executed"
	StageSanitized        Stage = "sanitized"
	StageNarrated         Stage = "narrated"
	StageResponded        Stage = "responded"
)

// Status is the result of one stage transition.
type Status string

const (
	StatusOK      Status = "ok"
	StatusRefused Status = "refused"
	StatusFailed  Status = "failed"
)

// StageOutcome is one immutable entry in a RequestContext's transition log.
type StageOutcome struct {
	Stage  Stage
	Status Status
	Detail string
	At     time.Time
}

// RequestContext carries everything a stage needs plus the append-only
// transition log. Fields are explicitly enumerated rather than a generic
// bag, per the gateway's data model.
type RequestContext struct {
	Ctx       context.Context
	Utterance string
	SessionID string
	Branch    string
	Role      string
	At        time.Time

	outcomes []StageOutcome
}

// NewRequestContext builds a RequestContext for one incoming question.
func NewRequestContext(ctx context.Context, utterance, sessionID, branch, role string, at time.Time) *RequestContext {
	return &RequestContext{
		Ctx:       ctx,
		Utterance: utterance,
		SessionID: sessionID,
		Branch:    branch,
		Role:      role,
		At:        at,
	}
}

// record appends a new transition. Never mutates a prior entry.
func (rc *RequestContext) record(stage Stage, status Status, detail string) {
	rc.outcomes = append(rc.outcomes, StageOutcome{
		Stage:  stage,
		Status: status,
		Detail: detail,
		At:     time.Now(),
	})
}

// Outcomes returns a copy of the transition log so far.
func (rc *RequestContext) Outcomes() []StageOutcome {
	out := make([]StageOutcome, len(rc.outcomes))
	copy(out, rc.outcomes)
	return out
}
