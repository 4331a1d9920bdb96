package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodOptions, "/api/v1/context/query", nil)
	c.Request.Header.Set("Origin", "https://console.example.com")

	CORS(nil)(c)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.True(t, c.IsAborted())
}

func TestCORSAllowlistRejectsUnknownOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/context/query", nil)
	c.Request.Header.Set("Origin", "https://evil.example.com")

	CORS([]string{"https://console.example.com"})(c)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.False(t, c.IsAborted())
}

func TestRequestIDMintedAndEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)

	RequestID()(c)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(rec2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	c2.Request.Header.Set("X-Request-Id", "upstream-id")

	RequestID()(c2)
	require.Equal(t, "upstream-id", rec2.Header().Get("X-Request-Id"))
	got, _ := c2.Get(ContextRequestIDKey)
	require.Equal(t, "upstream-id", got)
}
