package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
)

// uniqueViolation is the Postgres error code raised when the cart_id or
// transaction_id uniqueness guard trips under concurrent writers.
const uniqueViolation = "23505"

// PostgresOrderRepository implements OrderRepository and CatalogRepository
// using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

var _ OrderRepository = (*PostgresOrderRepository)(nil)
var _ CatalogRepository = (*PostgresOrderRepository)(nil)

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Entry) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger.WithField("component", "order-repository"),
	}
}

// CreateOrder inserts the order and its lines atomically. The pre-insert
// cart_id check gives a clean conflict message; the UNIQUE constraint on
// orders.cart_id closes the race two concurrent checkouts would otherwise
// win together.
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.logger.WithFields(logrus.Fields{
		"user_id": order.UserID,
		"cart_id": order.CartID,
	}).Debug("Creating order")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var used bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE cart_id = $1)`,
		order.CartID,
	).Scan(&used); err != nil {
		return nil, err
	}
	if used {
		return nil, apperr.NewConflictError("cart already used for an order: %s", order.CartID)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, address_id, total_amount, status, discount_id, cart_id, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		order.UserID,
		order.AddressID,
		order.TotalAmount,
		order.Status,
		order.DiscountID,
		order.CartID,
		order.OrderDate,
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.NewConflictError("cart already used for an order: %s", order.CartID)
		}
		r.logger.WithFields(logrus.Fields{
			"user_id": order.UserID,
			"error":   err.Error(),
		}).Error("Failed to insert order")
		return nil, err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID

		var productID, bundleID *int64
		switch line.Target.Kind {
		case models.TargetProduct:
			productID = &line.Target.ID
		case models.TargetBundle:
			bundleID = &line.Target.ID
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, bundle_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, line.OrderID, productID, bundleID, line.Quantity, line.UnitPrice).Scan(&line.ID)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			}).Error("Failed to insert order line")
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalAmount,
		"lines":    len(order.Lines),
	}).Info("Order created")

	return order, nil
}

// GetOrderByID retrieves an order and its lines.
func (r *PostgresOrderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `
		SELECT id, user_id, address_id, total_amount, status, discount_id, cart_id, order_date
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	var discountID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.AddressID,
		&order.TotalAmount,
		&order.Status,
		&discountID,
		&order.CartID,
		&order.OrderDate,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"order_id": id,
			"error":    err.Error(),
		}).Error("Failed to fetch order")
		return nil, err
	}

	if discountID.Valid {
		order.DiscountID = &discountID.Int64
	}

	lines, err := r.orderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

// ListOrdersByUser retrieves all orders for a user, newest first.
func (r *PostgresOrderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	return r.listOrders(ctx,
		`SELECT id, user_id, address_id, total_amount, status, discount_id, cart_id, order_date
		 FROM orders WHERE user_id = $1 ORDER BY order_date DESC`, userID)
}

// ListOrders retrieves every order, newest first.
func (r *PostgresOrderRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return r.listOrders(ctx,
		`SELECT id, user_id, address_id, total_amount, status, discount_id, cart_id, order_date
		 FROM orders ORDER BY order_date DESC`)
}

func (r *PostgresOrderRepository) listOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		var order models.Order
		var discountID sql.NullInt64
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.AddressID,
			&order.TotalAmount,
			&order.Status,
			&discountID,
			&order.CartID,
			&order.OrderDate,
		); err != nil {
			return nil, err
		}
		if discountID.Valid {
			order.DiscountID = &discountID.Int64
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		lines, err := r.orderLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	return orders, nil
}

func (r *PostgresOrderRepository) orderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, bundle_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]models.OrderLine, 0)
	for rows.Next() {
		var line models.OrderLine
		var productID, bundleID sql.NullInt64
		if err := rows.Scan(&line.ID, &line.OrderID, &productID, &bundleID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		switch {
		case productID.Valid:
			line.Target = models.ProductTarget(productID.Int64)
		case bundleID.Valid:
			line.Target = models.BundleTarget(bundleID.Int64)
		default:
			return nil, fmt.Errorf("order line %d has no product or bundle reference", line.ID)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpdateOrderStatus updates the fulfillment status of an order.
func (r *PostgresOrderRepository) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"order_id": id,
			"error":    err.Error(),
		}).Error("Failed to update order status")
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperr.ErrNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":   id,
		"new_status": status,
	}).Info("Order status updated")
	return nil
}

// GetUser retrieves the account projection for a user.
func (r *PostgresOrderRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Email)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAddress retrieves a shipping address.
func (r *PostgresOrderRepository) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	var addr models.Address
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, street, city, state FROM addresses WHERE id = $1`, id,
	).Scan(&addr.ID, &addr.UserID, &addr.Street, &addr.City, &addr.State)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// TargetExists checks that the product or bundle a line references is real.
func (r *PostgresOrderRepository) TargetExists(ctx context.Context, target models.LineTarget) (bool, error) {
	var query string
	switch target.Kind {
	case models.TargetProduct:
		query = `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`
	case models.TargetBundle:
		query = `SELECT EXISTS(SELECT 1 FROM bundles WHERE id = $1)`
	default:
		return false, fmt.Errorf("unknown line target kind %q", target.Kind)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, target.ID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// TargetName resolves a line reference to its display name.
func (r *PostgresOrderRepository) TargetName(ctx context.Context, target models.LineTarget) (string, error) {
	var query string
	switch target.Kind {
	case models.TargetProduct:
		query = `SELECT name FROM products WHERE id = $1`
	case models.TargetBundle:
		query = `SELECT name FROM bundles WHERE id = $1`
	default:
		return "", fmt.Errorf("unknown line target kind %q", target.Kind)
	}

	var name string
	err := r.db.QueryRowContext(ctx, query, target.ID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// GuidesForOrder returns the distinct guides attached to the rituals of the
// bundles on an order's lines.
func (r *PostgresOrderRepository) GuidesForOrder(ctx context.Context, orderID int64) ([]models.Guide, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT g.id, g.name
		FROM order_items oi
		JOIN bundles b ON b.id = oi.bundle_id
		JOIN guides g ON g.puja_id = b.puja_id
		WHERE oi.order_id = $1 AND oi.bundle_id IS NOT NULL
		ORDER BY g.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guides := make([]models.Guide, 0)
	for rows.Next() {
		var g models.Guide
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	return guides, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
