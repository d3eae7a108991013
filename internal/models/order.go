package models

import "time"

// OrderStatus is the fulfillment lifecycle of an order. Payment settlement is
// tracked separately on the Payment row.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ValidOrderStatus reports whether s names a known status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the immutable-once-created record of a purchase.
type Order struct {
	ID          int64       `json:"orderId"`
	UserID      int64       `json:"userId"`
	AddressID   int64       `json:"addressId"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	DiscountID  *int64      `json:"discountId,omitempty"`
	// CartID is retained after the cart row is deleted so a retry with the
	// same cart can be rejected.
	CartID    string      `json:"cartId"`
	OrderDate time.Time   `json:"orderDate"`
	Lines     []OrderLine `json:"orderItems"`
}

// OrderLine mirrors a cart line, frozen at order-creation time.
type OrderLine struct {
	ID        int64      `json:"orderItemId"`
	OrderID   int64      `json:"orderId"`
	Target    LineTarget `json:"target"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"price"`
}

// CreateOrderRequest carries the checkout parameters.
type CreateOrderRequest struct {
	UserID       int64  `form:"userId" json:"userId"`
	AddressID    int64  `form:"addressId" json:"addressId"`
	CartID       string `form:"cartId" json:"cartId"`
	DiscountCode string `form:"discountCode" json:"discountCode"`
}
