package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL.
type PostgresPaymentRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

var _ PaymentRepository = (*PostgresPaymentRepository)(nil)

// NewPostgresPaymentRepository creates a new PostgreSQL payment repository.
func NewPostgresPaymentRepository(db *sql.DB, logger *logrus.Entry) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db:     db,
		logger: logger.WithField("component", "payment-repository"),
	}
}

// GetByOrderID retrieves the payment row for an order.
func (r *PostgresPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var p models.Payment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, transaction_id, amount, status, payment_date
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(&p.ID, &p.OrderID, &p.UserID, &p.TransactionID, &p.Amount, &p.Status, &p.PaymentDate)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the single payment row for an order.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, user_id, transaction_id, amount, status, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		payment.OrderID,
		payment.UserID,
		payment.TransactionID,
		payment.Amount,
		payment.Status,
		payment.PaymentDate,
	).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.NewConflictError("payment already exists for order %d", payment.OrderID)
		}
		r.logger.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		}).Error("Failed to create payment")
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"transaction_id": payment.TransactionID,
	}).Info("Payment record created")
	return payment, nil
}

// ResetForRetry reuses the row for a new attempt.
func (r *PostgresPaymentRepository) ResetForRetry(ctx context.Context, paymentID int64, transactionID string, amount float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET transaction_id = $2, amount = $3, status = $4, payment_date = $5
		WHERE id = $1
	`, paymentID, transactionID, amount, models.PaymentStatusPending, time.Now())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperr.ErrNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"payment_id":     paymentID,
		"transaction_id": transactionID,
	}).Info("Payment record reset for retry")
	return nil
}

// MarkCompleted records the settled transaction code and amount. The order's
// fulfillment status is untouched; shipping is a separate admin lifecycle.
func (r *PostgresPaymentRepository) MarkCompleted(ctx context.Context, paymentID int64, transactionID string, amount float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET transaction_id = $2, amount = $3, status = $4, payment_date = $5
		WHERE id = $1
	`, paymentID, transactionID, amount, models.PaymentStatusCompleted, time.Now())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperr.ErrNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"payment_id":     paymentID,
		"transaction_id": transactionID,
		"amount":         amount,
	}).Info("Payment completed")
	return nil
}

// MarkFailed sets the payment FAILED and cancels its order in one
// transaction, so a crash cannot leave the pair half-updated.
func (r *PostgresPaymentRepository) MarkFailed(ctx context.Context, paymentID, orderID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $2, payment_date = $3 WHERE id = $1
	`, paymentID, models.PaymentStatusFailed, time.Now())
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, orderID, models.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"order_id":   orderID,
	}).Info("Payment failed, order cancelled")
	return nil
}

// List retrieves payments, optionally filtered by status.
func (r *PostgresPaymentRepository) List(ctx context.Context, status string) ([]*models.Payment, error) {
	query := `
		SELECT id, order_id, user_id, transaction_id, amount, status, payment_date
		FROM payments
	`
	args := make([]interface{}, 0, 1)
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY payment_date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.UserID, &p.TransactionID, &p.Amount, &p.Status, &p.PaymentDate); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
