package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errBadSignature = errors.New("bad signature")

func TestRejectedGatewayCallbackLogsAtWarn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	engine := gin.New()
	engine.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(err error) (string, string) {
			if errors.Is(err, errBadSignature) {
				return "unauthorized", "invalid_signature"
			}
			return "internal", "internal_error"
		},
	}))
	reject := func(c *gin.Context) {
		_ = c.Error(errBadSignature)
		c.Status(http.StatusUnauthorized)
	}
	engine.POST(GatewayCallbackRoute, reject)
	engine.POST("/subscriptions/:id/renew", reject)

	for _, path := range []string{GatewayCallbackRoute, "/subscriptions/42/renew"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, GatewayCallbackRoute, entries[0].ContextMap()["route"])
	assert.Equal(t, "invalid_signature", entries[0].ContextMap()["error_code"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "42", entries[1].ContextMap()["resource_id"])
}
