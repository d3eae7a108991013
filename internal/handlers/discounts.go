package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDiscounts handles GET /api/discounts
func (h *Handlers) ListDiscounts(c *gin.Context) {
	codes, err := h.discountService.ListActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, codes)
}

// SetDiscountActive handles PUT /api/discounts/:code/active
// Called by the seasonal scheduler, not by storefront clients.
func (h *Handlers) SetDiscountActive(c *gin.Context) {
	code := c.Param("code")

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.discountService.SetActive(c.Request.Context(), code, *req.Active); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   code,
		"active": *req.Active,
	})
}
