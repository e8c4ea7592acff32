// conversions.go lets callers look back at their conversions and download
// the results of queued ones.
package handlers

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// ListConversions returns the caller's conversions, newest first.
// GET /api/v1/conversions?page=1&per_page=20&status=completed&tool=merge-pdf
func (h *Handler) ListConversions(c *gin.Context) {
	var params models.ConversionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respond(c, http.StatusBadRequest, "invalid_request", "Invalid query parameters")
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	params.APIKeyID, params.UserID = middleware.Owner(c)

	items, total, err := h.Store.ListConversions(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []models.Conversion{}
	}

	c.JSON(http.StatusOK, models.PaginatedResponse[models.Conversion]{
		Data:       items,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: (total + params.PerPage - 1) / params.PerPage,
	})
}

// ownedConversion loads the conversion in the :id param if the caller owns
// it. Someone else's conversion is reported as not found.
func (h *Handler) ownedConversion(c *gin.Context) *models.Conversion {
	cv, err := h.Store.GetConversion(c.Request.Context(), c.Param("id"))
	if err != nil || !owns(c, cv) {
		respond(c, http.StatusNotFound, "not_found", "Conversion not found")
		return nil
	}
	return cv
}

func owns(c *gin.Context, cv *models.Conversion) bool {
	apiKeyID, userID := middleware.Owner(c)
	if apiKeyID != nil && cv.APIKeyID != nil && *apiKeyID == *cv.APIKeyID {
		return true
	}
	return userID != nil && cv.UserID != nil && *userID == *cv.UserID
}

// GetConversion returns one conversion.
// GET /api/v1/conversions/:id
func (h *Handler) GetConversion(c *gin.Context) {
	if cv := h.ownedConversion(c); cv != nil {
		c.JSON(http.StatusOK, cv)
	}
}

// DownloadConversion sends the stored result of a queued conversion.
// Inline conversions are returned in their response and not kept.
// GET /api/v1/conversions/:id/download
func (h *Handler) DownloadConversion(c *gin.Context) {
	cv := h.ownedConversion(c)
	if cv == nil {
		return
	}

	switch cv.Status {
	case models.StatusPending, models.StatusProcessing:
		respond(c, http.StatusConflict, "not_ready", "The conversion is still running.")
		return
	case models.StatusFailed:
		respond(c, http.StatusConflict, "conversion_failed", "The conversion failed: "+cv.ErrorMessage)
		return
	}
	if cv.ResultPath == "" {
		respond(c, http.StatusNotFound, "not_found", "The result of this conversion is no longer available.")
		return
	}

	data, err := h.Results.Open(cv.ID)
	if err != nil {
		respond(c, http.StatusNotFound, "not_found", "The result of this conversion is no longer available.")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(cv.OutputName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sendFile(c, output{Name: cv.OutputName, ContentType: contentType, Data: data})
}
