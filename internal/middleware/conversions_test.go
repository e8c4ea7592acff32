package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

// limitedRouter mounts a tool route that consumes a conversion when the
// query says the run succeeded.
func limitedRouter(l *limiter.Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/tool", OptionalAuth(newFakeAuthStore(), testSecret), ConversionLimit(l), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusUnprocessableEntity)
			return
		}
		if err := ConsumeConversion(c); err != nil {
			LimitReached(c)
			return
		}
		c.String(http.StatusOK, "done")
	})
	return r
}

func post(r http.Handler, target, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.RemoteAddr = "203.0.113.7:5555"
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConversionLimit_AnonymousGetsTwo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(limiter.New(limiter.NewMemoryStore(), 2, nil))

	w := post(r, "/tool", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Conversion-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-Conversion-Remaining"))

	// A failed run does not count.
	w = post(r, "/tool?fail=1", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = post(r, "/tool", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Conversion-Remaining"))

	w = post(r, "/tool", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "conversion_limit_reached")
	assert.Contains(t, w.Body.String(), "Please sign up for unlimited conversions.")
}

func TestConversionLimit_AuthenticatedBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(limiter.New(limiter.NewMemoryStore(), 1, nil))

	for i := 0; i < 3; i++ {
		w := post(r, "/tool", "sc_good")
		require.Equal(t, http.StatusOK, w.Code, "run %d", i+1)
		assert.Empty(t, w.Header().Get("X-Conversion-Limit"))
	}
}

func TestConversionLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(limiter.New(limiter.NewMemoryStore(), 0, nil))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, post(r, "/tool", "").Code)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(3)
	r := gin.New()
	r.POST("/tool", OptionalAuth(newFakeAuthStore(), testSecret), rl.RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// The API key carries its own limit of 2.
	assert.Equal(t, http.StatusOK, post(r, "/tool", "sc_good").Code)
	assert.Equal(t, http.StatusOK, post(r, "/tool", "sc_good").Code)
	w := post(r, "/tool", "sc_good")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	// Anonymous callers use the default of 3, keyed by IP.
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, post(r, "/tool", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, post(r, "/tool", "").Code)
}
