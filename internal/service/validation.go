package service

import (
	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
)

// ValidateCreateOrderRequest checks the checkout parameters before any
// repository work happens.
func ValidateCreateOrderRequest(req *models.CreateOrderRequest) error {
	if req.UserID <= 0 {
		return apperr.NewValidationError("userId", "user id is required")
	}
	if req.AddressID <= 0 {
		return apperr.NewValidationError("addressId", "address id is required")
	}
	if req.CartID == "" {
		return apperr.NewValidationError("cartId", "cart id is required")
	}
	return nil
}

// validateCartLine checks the per-line invariants that are cheap to verify
// before touching the catalog.
func validateCartLine(line models.CartLine) error {
	if line.Quantity <= 0 {
		return apperr.NewValidationError("quantity", "quantity must be positive")
	}
	if line.UnitPrice <= 0 {
		return apperr.NewValidationError("price", "unit price must be positive")
	}
	return nil
}

// isValidStatusTransition encodes the fulfillment lifecycle. CANCELLED and
// DELIVERED are terminal.
func isValidStatusTransition(from, to models.OrderStatus) bool {
	validTransitions := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
		models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
		models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
		models.OrderStatusDelivered:  {},
		models.OrderStatusCancelled:  {},
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
