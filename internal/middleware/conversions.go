// conversions.go applies the daily conversion limit to anonymous callers.
//
// The check happens in two steps. ConversionLimit runs before the handler
// and turns away clients that have nothing left. The handler calls
// ConsumeConversion once its output is ready, so failed runs are free and
// the atomic store update keeps concurrent requests from overshooting.
package middleware

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

const limiterContextKey contextKey = "conversion_limiter"

// ClientID is the limiter key of an anonymous request.
func ClientID(c *gin.Context) string {
	return c.ClientIP()
}

func setLimitHeaders(c *gin.Context, st limiter.Status) {
	c.Header("X-Conversion-Limit", strconv.Itoa(st.Limit))
	c.Header("X-Conversion-Remaining", strconv.Itoa(st.Remaining))
}

// LimitReached writes the 429 response for an exhausted daily limit.
func LimitReached(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
		Error:   "conversion_limit_reached",
		Message: limiter.LimitMessage,
		Code:    http.StatusTooManyRequests,
	})
	c.Abort()
}

// ConversionLimit rejects anonymous callers who have used today's
// conversions. Authenticated callers pass untouched.
func ConversionLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || !l.Enabled() || Authenticated(c) {
			c.Next()
			return
		}

		st, err := l.Status(c.Request.Context(), ClientID(c))
		if err != nil {
			log.Printf("❌ Failed to read conversion usage: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to check the conversion limit",
				Code:    http.StatusInternalServerError,
			})
			c.Abort()
			return
		}

		setLimitHeaders(c, st)
		if st.Remaining == 0 {
			LimitReached(c)
			return
		}

		c.Set(string(limiterContextKey), l)
		c.Next()
	}
}

// ConsumeConversion counts one conversion for the caller. It is a no-op
// when ConversionLimit did not arm the request. It returns
// limiter.ErrLimitReached when a concurrent request took the last one.
func ConsumeConversion(c *gin.Context) error {
	val, ok := c.Get(string(limiterContextKey))
	if !ok {
		return nil
	}
	l, ok := val.(*limiter.Limiter)
	if !ok {
		return nil
	}

	st, err := l.Consume(c.Request.Context(), ClientID(c))
	if err != nil && !errors.Is(err, limiter.ErrLimitReached) {
		return err
	}
	setLimitHeaders(c, st)
	return err
}
