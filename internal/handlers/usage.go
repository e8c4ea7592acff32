package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

// GetUsage reports how many conversions the caller has left today.
// Signed-in callers and API keys are unlimited.
// GET /api/v1/usage
func (h *Handler) GetUsage(c *gin.Context) {
	resp, err := h.usage(c, middleware.Authenticated(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// usage builds the caller's standing. Authenticated callers are unlimited
// but still see today's anonymous count for their address.
func (h *Handler) usage(c *gin.Context, authenticated bool) (models.UsageResponse, error) {
	if h.Limiter == nil || !h.Limiter.Enabled() {
		day := ""
		if h.Limiter != nil {
			day = h.Limiter.Today()
		}
		return models.UsageResponse{
			Status:        limiter.Status{Day: day, Unlimited: true},
			Authenticated: authenticated,
		}, nil
	}

	st, err := h.Limiter.Status(c.Request.Context(), middleware.ClientID(c))
	if authenticated {
		resp := models.UsageResponse{
			Status:        limiter.Status{Day: h.Limiter.Today(), Unlimited: true},
			Authenticated: true,
		}
		if err == nil {
			resp.Count = st.Count
		}
		return resp, err
	}
	if err != nil {
		return models.UsageResponse{}, err
	}

	resp := models.UsageResponse{Status: st}
	if st.Remaining == 0 {
		resp.Message = limiter.LimitMessage
	}
	return resp, nil
}
