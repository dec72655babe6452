package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestDatabase(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"up", nil, http.StatusOK, `{"status":"ok","database":"connected"}`},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable, `{"message":"Service Unavailable","reason":"database_unavailable","status":503}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(pingFunc(func(context.Context) error { return tt.err }), zap.NewNop())
			rec := httptest.NewRecorder()
			h.Database(rec, httptest.NewRequest(http.MethodGet, "/api/health/database", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil, zap.NewNop()).Live(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
