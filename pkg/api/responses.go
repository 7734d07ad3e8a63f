package api

// Visualization describes how the UI should render a query's result set.
type Visualization struct {
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
}

// QueryResponse is the success envelope for POST /api/v1/admin/query.
type QueryResponse struct {
	Success        bool             `json:"success"`
	SQL            string           `json:"sql,omitempty"`
	SQLExplanation string           `json:"sql_explanation,omitempty"`
	Confidence     float64          `json:"confidence,omitempty"`
	RowCount       int              `json:"row_count"`
	Data           []map[string]any `json:"data"`
	Visualization  Visualization    `json:"visualization"`
	Summary        string           `json:"summary"`
	Source         string           `json:"source"`
}

// ErrorResponse is the refusal/failure envelope for POST /api/v1/admin/query
// and every other admin endpoint.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	SessionID string `json:"session_id,omitempty"`
}

// CancelResponse is returned by POST /api/v1/admin/sessions/:id/cancel.
type CancelResponse struct {
	SessionID string `json:"session_id"`
	Cancelled bool   `json:"cancelled"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
