package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/config"
)

func TestNewInMemory(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Setenv("SURVEY_SERVER_MODE", "debug")
	t.Setenv("MONGO_URI", config.MongoURIMemory)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	cancel()
	require.NoError(t, a.Close(context.Background()))
}
