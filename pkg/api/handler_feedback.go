package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tarsy/pkg/store"
)

// storeDisabledResponse is returned by every store-backed endpoint when
// pkg/store is not wired (APP_DB_DSN unset).
func (s *Server) storeDisabledResponse(c *echo.Context) error {
	return c.JSON(http.StatusOK, &ErrorResponse{
		Error:     "the learning-loop store is not enabled on this deployment",
		ErrorType: "StoreDisabled",
	})
}

// submitFeedbackHandler handles POST /api/v1/admin/feedback.
func (s *Server) submitFeedbackHandler(c *echo.Context) error {
	if s.store == nil {
		return s.storeDisabledResponse(c)
	}

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{Error: "malformed request body", ErrorType: "InvalidInput"})
	}

	err := s.store.CaptureFeedback(c.Request().Context(), store.Feedback{
		SessionID: req.SessionID,
		Query:     req.Query,
		SQL:       req.SQL,
		Type:      store.FeedbackType(req.Type),
		Data:      req.Data,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: "failed to record feedback", ErrorType: "Internal"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// addGoldenQuestionHandler handles POST /api/v1/admin/golden-questions.
func (s *Server) addGoldenQuestionHandler(c *echo.Context) error {
	if s.store == nil {
		return s.storeDisabledResponse(c)
	}

	var req GoldenQuestionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &ErrorResponse{Error: "malformed request body", ErrorType: "InvalidInput"})
	}

	err := s.store.AddGoldenQuestion(c.Request().Context(), store.GoldenQuestion{
		Question:    req.Question,
		SQL:         req.SQL,
		Category:    req.Category,
		ValidatedBy: req.ValidatedBy,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: "failed to add golden question", ErrorType: "Internal"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// listGoldenQuestionsHandler handles GET /api/v1/admin/golden-questions.
func (s *Server) listGoldenQuestionsHandler(c *echo.Context) error {
	if s.store == nil {
		return s.storeDisabledResponse(c)
	}

	category := c.QueryParam("category")
	questions, err := s.store.GoldenQuestions(c.Request().Context(), category)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: "failed to list golden questions", ErrorType: "Internal"})
	}

	return c.JSON(http.StatusOK, questions)
}
