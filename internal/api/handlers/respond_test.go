package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
)

func TestFailLogsRouteTemplateNotToken(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	r := chi.NewRouter()
	r.Get("/portal/{token}/files/{fileId}", func(w http.ResponseWriter, req *http.Request) {
		fail(w, req, appErr.New(appErr.CodeUpstream, "file storage not configured"))
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/portal/s3cret-portal-token/files/abc", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/portal/{token}/files/{fileId}", fields["route"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "s3cret-portal-token")
		}
	}
}
