package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	err error
}

func (p fakeProbe) Health(context.Context) error { return p.err }

func performHealth(t *testing.T, probes map[string]HealthChecker) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handleHealth(probes)(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthNoProbes(t *testing.T) {
	rec, body := performHealth(t, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "dependencies")
}

func TestHealthProbesPass(t *testing.T) {
	rec, body := performHealth(t, map[string]HealthChecker{
		"redis": fakeProbe{},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	deps, ok := body["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", deps["redis"])
}

func TestHealthFailingProbeDegrades(t *testing.T) {
	rec, body := performHealth(t, map[string]HealthChecker{
		"redis": fakeProbe{err: errors.New("connection refused")},
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	deps, ok := body["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connection refused", deps["redis"])
}
