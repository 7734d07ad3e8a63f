package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/conversation"
	"github.com/codeready-toolchain/tarsy/pkg/insight"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
	"github.com/codeready-toolchain/tarsy/pkg/rewriter"
	"github.com/codeready-toolchain/tarsy/pkg/router"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
	"github.com/codeready-toolchain/tarsy/pkg/sanitizer"
	"github.com/codeready-toolchain/tarsy/pkg/sqlgen"
)

func testServer(t *testing.T, adminKey string) *Server {
	t.Helper()
	cat := catalog.NewCatalogueFromSchema(catalog.NewSchema(map[string]catalog.Table{
		"claims":    {Name: "claims", Domain: catalog.DomainClaimsDiagnosis, Keywords: []string{"claim", "claims"}},
		"diagnoses": {Name: "diagnoses", Domain: catalog.DomainClaimsDiagnosis, Keywords: []string{"diagnosis", "diagnoses"}},
	}))

	san := sanitizer.New(config.SanitizerConfig{SmallCellMin: 1, SmallCellMax: 5, SmallCellSentinel: "<5"}, masking.NewService())

	orchestrator := pipeline.New(
		router.NewIntentRouter(nil),
		router.NewDomainRouter(cat),
		classifier.New(),
		sqlgen.New(nil, "postgres"),
		safety.New(),
		rewriter.New(),
		nil,
		san,
		insight.New(nil),
		conversation.NewStore(20, time.Hour),
		nil,
		cat,
	)

	cfg := &config.Config{Server: config.ServerConfig{AdminAPIKey: adminKey, RequestBodyCap: 1 << 20}}
	return NewServer(cfg, orchestrator, nil)
}

func TestQueryHandlerChatIntentReturnsSuccessEnvelope(t *testing.T) {
	s := testServer(t, "")

	body, _ := json.Marshal(AdminQueryRequest{Query: "hello there"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "chat", resp.Source)
}

func TestQueryHandlerOutOfScopeReturnsRefusalEnvelope(t *testing.T) {
	s := testServer(t, "")

	body, _ := json.Marshal(AdminQueryRequest{Query: "what is the employee payroll this month"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "OutOfScope", resp.ErrorType)
}

func TestQueryHandlerRejectsWithoutAdminKey(t *testing.T) {
	s := testServer(t, "secret")

	body, _ := json.Marshal(AdminQueryRequest{Query: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthHandlerReportsHealthyWithoutStore(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestCancelSessionHandlerReturnsFalseForUnknownSession(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sessions/unknown/cancel", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Cancelled)
}
