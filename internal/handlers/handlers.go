// Package handlers wires the HTTP surface onto the checkout services.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/service"
)

// Handlers holds all HTTP handlers for the checkout service.
type Handlers struct {
	orderService    *service.OrderService
	paymentService  *service.PaymentService
	discountService *service.DiscountService
	config          *config.Config
	logger          *logrus.Entry
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	discountService *service.DiscountService,
	cfg *config.Config,
	logger *logrus.Entry,
) *Handlers {
	return &Handlers{
		orderService:    orderService,
		paymentService:  paymentService,
		discountService: discountService,
		config:          cfg,
		logger:          logger.WithField("component", "handlers"),
	}
}

// handleError maps the error taxonomy onto HTTP codes in one place. The
// payment callback endpoint has its own mapping because the gateway expects
// its status-object shape.
func handleError(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	var conflictErr *apperr.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
