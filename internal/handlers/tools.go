package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

// ListTools returns the tool catalog. ?format=markdown renders it as a
// Markdown document instead of JSON; ?category= narrows the list.
// GET /api/v1/tools
func (h *Handler) ListTools(c *gin.Context) {
	if c.Query("format") == "markdown" {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.Status(http.StatusOK)
		if err := tools.WriteMarkdown(c.Writer); err != nil {
			h.fail(c, err)
		}
		return
	}

	all := tools.All()
	if cat := c.Query("category"); cat != "" {
		filtered := all[:0]
		for _, t := range all {
			if string(t.Category) == cat {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}

	c.JSON(http.StatusOK, models.ToolsResponse{
		Categories: tools.Categories(),
		Tools:      all,
	})
}
