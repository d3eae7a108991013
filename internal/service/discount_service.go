package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/models"
	"github.com/pujakriti/checkout-service/internal/repository"
)

// DiscountService resolves discount codes for checkout. Resolution is
// fail-closed: an unknown, inactive or expired code rejects the checkout
// rather than silently pricing without the discount.
type DiscountService struct {
	discountRepo repository.DiscountRepository
	logger       *logrus.Entry
	// now is swapped in tests to pin the expiry boundary.
	now func() time.Time
}

// NewDiscountService creates a new discount service.
func NewDiscountService(discountRepo repository.DiscountRepository, logger *logrus.Entry) *DiscountService {
	return &DiscountService{
		discountRepo: discountRepo,
		logger:       logger.WithField("component", "discount-service"),
		now:          time.Now,
	}
}

// Resolve validates a discount code and returns it. A code expiring today is
// still valid; expiry is checked at day granularity.
func (s *DiscountService) Resolve(ctx context.Context, code string) (*models.DiscountCode, error) {
	discount, err := s.discountRepo.GetByCode(ctx, code)
	if err != nil {
		if err == apperr.ErrNotFound {
			return nil, apperr.NewValidationError("discountCode", "unknown discount code")
		}
		return nil, err
	}

	if !discount.IsActive {
		return nil, apperr.NewValidationError("discountCode", "discount code is not active")
	}

	if dayOf(discount.ExpiryDate).Before(dayOf(s.now())) {
		return nil, apperr.NewValidationError("discountCode", "discount code has expired")
	}

	s.logger.WithFields(logrus.Fields{
		"code": discount.Code,
		"rate": discount.Rate,
	}).Debug("Discount code resolved")

	return discount, nil
}

// ListActive returns the currently active discount codes.
func (s *DiscountService) ListActive(ctx context.Context) ([]models.DiscountCode, error) {
	return s.discountRepo.ListActive(ctx)
}

// SetActive toggles a code's active flag. The seasonal scheduler is the only
// expected caller.
func (s *DiscountService) SetActive(ctx context.Context, code string, active bool) error {
	return s.discountRepo.SetActive(ctx, code, active)
}

// dayOf reduces a timestamp to its calendar day in the timestamp's own zone,
// so the expiry boundary never shifts with the clock's offset from UTC.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
