package repository

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
)

// PostgresDiscountRepository implements DiscountRepository using PostgreSQL.
type PostgresDiscountRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

var _ DiscountRepository = (*PostgresDiscountRepository)(nil)

// NewPostgresDiscountRepository creates a new PostgreSQL discount repository.
func NewPostgresDiscountRepository(db *sql.DB, logger *logrus.Entry) *PostgresDiscountRepository {
	return &PostgresDiscountRepository{
		db:     db,
		logger: logger.WithField("component", "discount-repository"),
	}
}

// GetByCode looks up a discount code.
func (r *PostgresDiscountRepository) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, rate, is_active, expiry_date
		FROM discount_codes
		WHERE code = $1
	`, code).Scan(&d.ID, &d.Code, &d.Rate, &d.IsActive, &d.ExpiryDate)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID looks up a discount code by its id, for order projections that
// carry only the foreign key.
func (r *PostgresDiscountRepository) GetByID(ctx context.Context, id int64) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, rate, is_active, expiry_date
		FROM discount_codes
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Code, &d.Rate, &d.IsActive, &d.ExpiryDate)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListActive returns the currently active discount codes.
func (r *PostgresDiscountRepository) ListActive(ctx context.Context) ([]models.DiscountCode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, rate, is_active, expiry_date
		FROM discount_codes
		WHERE is_active = TRUE
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]models.DiscountCode, 0)
	for rows.Next() {
		var d models.DiscountCode
		if err := rows.Scan(&d.ID, &d.Code, &d.Rate, &d.IsActive, &d.ExpiryDate); err != nil {
			return nil, err
		}
		codes = append(codes, d)
	}
	return codes, rows.Err()
}

// SetActive toggles a code's active flag. Called by the external seasonal
// scheduler; this service never schedules anything itself.
func (r *PostgresDiscountRepository) SetActive(ctx context.Context, code string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE discount_codes SET is_active = $2 WHERE code = $1`, code, active)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperr.ErrNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"code":   code,
		"active": active,
	}).Info("Discount code activity updated")
	return nil
}
