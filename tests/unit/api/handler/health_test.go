package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdb/nexusdb/internal/api/handler"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func TestHealth_AllHealthy(t *testing.T) {
	h := handler.NewHealthHandler(&stubPinger{}, &stubPinger{}, "1.2.3")

	req, w := makeRequest(http.MethodGet, "/health", nil, nil, nil)
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, true, data["database"])
	assert.Equal(t, true, data["runtime"])
}

func TestHealth_DegradedWhenRuntimeDown(t *testing.T) {
	h := handler.NewHealthHandler(&stubPinger{}, &stubPinger{err: errors.New("daemon unreachable")}, "dev")

	req, w := makeRequest(http.MethodGet, "/health", nil, nil, nil)
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].(map[string]any)
	assert.Equal(t, "degraded", data["status"])
	assert.Equal(t, false, data["runtime"])
}
