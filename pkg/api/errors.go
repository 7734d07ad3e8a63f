package api

import (
	"net/http"

	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
)

// outcomeResponse renders a pipeline.Outcome as the envelope and HTTP status
// spec.md §6 defines. Refusals and classified failures both report
// success:false with a stable error_type and still return HTTP 200 — only
// auth failures (handled in middleware, before the pipeline ever runs) and
// truly unexpected faults use a different status.
func outcomeResponse(sessionID string, outcome pipeline.Outcome) (int, any) {
	switch outcome.Kind {
	case pipeline.OutcomeResponded:
		return http.StatusOK, &QueryResponse{
			Success:        true,
			SQL:            outcome.SQL,
			SQLExplanation: outcome.Explanation,
			Confidence:     outcome.Confidence,
			RowCount:       outcome.RowCount,
			Data:           outcome.Data,
			Visualization:  Visualization{Type: "table", Columns: outcome.Columns},
			Summary:        outcome.Summary,
			Source:         outcome.Source,
		}
	case pipeline.OutcomeRefused:
		return http.StatusOK, &ErrorResponse{
			Error:     outcome.Reason,
			ErrorType: string(outcome.ErrorKind),
			SessionID: sessionID,
		}
	default: // pipeline.OutcomeFailed
		return http.StatusOK, &ErrorResponse{
			Error:     outcome.Reason,
			ErrorType: string(outcome.ErrorKind),
			SessionID: sessionID,
		}
	}
}

// internalErrorResponse renders an unexpected, non-pipeline-classified
// fault — the only case that does not get a success:false 200.
func internalErrorResponse(sessionID string) (int, *ErrorResponse) {
	return http.StatusInternalServerError, &ErrorResponse{
		Error:     "an internal error occurred, please retry",
		ErrorType: "Internal",
		SessionID: sessionID,
	}
}
