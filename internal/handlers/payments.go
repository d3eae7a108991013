package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
	"github.com/pujakriti/checkout-service/internal/service"
)

// InitiatePayment handles GET /api/payments/initiate
// Responds with an auto-submitting HTML form targeting the gateway.
func (h *Handlers) InitiatePayment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Query("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	payload, err := h.paymentService.InitiatePayment(c.Request.Context(), orderID, amount)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(payload.HTMLForm()))
}

// VerifyPayment handles GET /api/payments/verify
// This is the gateway's return URL. The response is the gateway-facing status
// object: COMPLETED/200, FAILED/400 or ERROR/500.
func (h *Handlers) VerifyPayment(c *gin.Context) {
	params := service.CallbackParams{
		OrderID: c.Query("orderId"),
		OID:     c.Query("oid"),
		Status:  c.Query("status"),
		Data:    c.Query("data"),
		Amount:  c.Query("amt"),
		RefID:   c.Query("refId"),
	}

	result, err := h.paymentService.Settle(c.Request.Context(), params)
	if err != nil {
		var protocolErr *apperr.GatewayProtocolError
		if errors.As(err, &protocolErr) {
			c.JSON(http.StatusInternalServerError,
				models.NewStatusResponse("ERROR", protocolErr.Message))
			return
		}
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusInternalServerError,
				models.NewStatusResponse("ERROR", "payment record not found"))
			return
		}
		c.JSON(http.StatusInternalServerError,
			models.NewStatusResponse("ERROR", err.Error()))
		return
	}

	if result.Status == service.ResultFailed {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPayments handles GET /api/payments
func (h *Handlers) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}
