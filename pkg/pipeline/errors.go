package pipeline

// ErrorKind classifies why a stage failed, mapped 1:1 onto the HTTP
// envelope's error_type field.
type ErrorKind string

const (
	ErrorInvalidInput        ErrorKind = "InvalidInput"
	ErrorAuthFailure         ErrorKind = "AuthFailure"
	ErrorOutOfScope          ErrorKind = "OutOfScope"
	ErrorClarification       ErrorKind = "Clarification"
	ErrorSafetyViolation     ErrorKind = "SafetyViolation"
	ErrorGenerationFailure   ErrorKind = "GenerationFailure"
	ErrorExecutionError      ErrorKind = "ExecutionError"
	ErrorTimeout             ErrorKind = "Timeout"
	ErrorUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
)

// StageError pairs an ErrorKind with a message. The orchestrator reports
// failures by setting Outcome.ErrorKind directly; no stage function returns
// a StageError.
type StageError struct {
	Kind    ErrorKind
	Message string
}

func (e *StageError) Error() string {
	return e.Message
}

func newStageError(kind ErrorKind, message string) *StageError {
	return &StageError{Kind: kind, Message: message}
}
