package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthHandlerLivenessReadiness(t *testing.T) {
	h := NewHealthHandler("InfoFi API", "0.1.0", "http://localhost:8000/docs")

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ready", rec.Body.String())
}

func TestHealthHandlerStatus(t *testing.T) {
	h := NewHealthHandler("InfoFi API", "0.1.0", "http://localhost:8000/docs")

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	require.Equal(t, StatusResponse{
		Message: "InfoFi API",
		Version: "0.1.0",
		Docs:    "http://localhost:8000/docs",
		Status:  "online",
	}, payload)
}

func TestHealthHandlerHealth(t *testing.T) {
	h := NewHealthHandler("InfoFi API", "0.1.0", "http://localhost:8000/docs")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var payload HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	require.Equal(t, HealthResponse{Status: "healthy", Version: "0.1.0"}, payload)
}
