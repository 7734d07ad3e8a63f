package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
)

// adminRole is the fixed authenticated role for every caller that passes
// RequireAdmin — this endpoint is the admin surface itself, so every
// accepted request runs with the safety validator's unrestricted role,
// matching the original auth.py's require_admin dependency always
// returning user_id "admin".
const adminRole = "admin"

// queryHandler handles POST /api/v1/admin/query.
func (s *Server) queryHandler(c *echo.Context) error {
	var req AdminQueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, &ErrorResponse{
			Error:     "malformed request body",
			ErrorType: string(pipeline.ErrorInvalidInput),
		})
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	rc := pipeline.NewRequestContext(c.Request().Context(), req.Query, sessionID, req.BranchID, adminRole, time.Now())
	outcome := s.orchestrator.Handle(rc)

	status, body := outcomeResponse(sessionID, outcome)
	return c.JSON(status, body)
}

// cancelSessionHandler handles POST /api/v1/admin/sessions/:id/cancel.
func (s *Server) cancelSessionHandler(c *echo.Context) error {
	id := c.Param("id")
	cancelled := s.orchestrator.CancelSession(id)
	return c.JSON(http.StatusOK, &CancelResponse{SessionID: id, Cancelled: cancelled})
}
