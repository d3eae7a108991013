// Package repository holds the durable-state access layer: Postgres for
// orders, payments and discounts, Redis for pre-order cart snapshots.
package repository

import (
	"context"

	"github.com/pujakriti/checkout-service/internal/models"
)

// CartStore holds mutable pre-order cart snapshots keyed by cart id.
type CartStore interface {
	Get(ctx context.Context, cartID string) (*models.Cart, error)
	Delete(ctx context.Context, cartID string) error
}

// OrderRepository persists orders and their frozen lines.
type OrderRepository interface {
	// CreateOrder inserts the order and its lines as a single transaction,
	// rejecting with a conflict if the originating cart was already consumed.
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
}

// PaymentRepository persists the single settlement row per order.
type PaymentRepository interface {
	GetByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	// ResetForRetry reuses the existing row for a new attempt: fresh
	// transaction id, status back to PENDING, updated timestamp.
	ResetForRetry(ctx context.Context, paymentID int64, transactionID string, amount float64) error
	// MarkCompleted records a settled payment; same-transaction as nothing
	// else since the order status is untouched by settlement success.
	MarkCompleted(ctx context.Context, paymentID int64, transactionID string, amount float64) error
	// MarkFailed sets the payment FAILED and cancels its order in one
	// transaction.
	MarkFailed(ctx context.Context, paymentID, orderID int64) error
	List(ctx context.Context, status string) ([]*models.Payment, error)
}

// DiscountRepository reads discount codes; activation is driven by the
// external seasonal scheduler through SetActive.
type DiscountRepository interface {
	GetByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	GetByID(ctx context.Context, id int64) (*models.DiscountCode, error)
	ListActive(ctx context.Context) ([]models.DiscountCode, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// CatalogRepository covers the read-only lookups checkout needs from the
// catalog/account side of the store. Every cross-entity read is an explicit
// query; nothing is lazy-loaded.
type CatalogRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAddress(ctx context.Context, id int64) (*models.Address, error)
	TargetExists(ctx context.Context, target models.LineTarget) (bool, error)
	// TargetName resolves a line to its display name, branching on whether
	// the line references a product or a bundle.
	TargetName(ctx context.Context, target models.LineTarget) (string, error)
	// GuidesForOrder returns the distinct guides attached to the bundle
	// lines of an order.
	GuidesForOrder(ctx context.Context, orderID int64) ([]models.Guide, error)
}
