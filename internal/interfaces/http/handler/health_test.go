package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/astrogoddess/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		ping       error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"storage down", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingerFunc(func(context.Context) error { return tt.ping }), "redis")
			engine := gin.New()
			h.RegisterRoutes(engine.Group("/api/v1"))

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			require.Equal(t, tt.wantCode, w.Code)

			resp, health := decode[HealthResponse](t, w)
			assert.Equal(t, tt.ping == nil, resp.Success)
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, "redis", health.Storage)
			if tt.ping != nil {
				require.NotNil(t, resp.Error)
				assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
			}
		})
	}
}

func TestHealthHandler_InMemoryStorage(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, health := decode[HealthResponse](t, w)
	assert.Equal(t, "memory", health.Storage)
}
