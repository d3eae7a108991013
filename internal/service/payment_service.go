package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/clients"
	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/events"
	"github.com/pujakriti/checkout-service/internal/gateway"
	"github.com/pujakriti/checkout-service/internal/metrics"
	"github.com/pujakriti/checkout-service/internal/models"
	"github.com/pujakriti/checkout-service/internal/repository"
)

// Settlement result statuses returned to the gateway redirect.
const (
	ResultCompleted = "COMPLETED"
	ResultFailed    = "FAILED"
)

// CallbackParams carries the raw query parameters of a gateway callback. The
// URL shape is controlled by the gateway, so aliases and oddly packed values
// are normalized here rather than in the handler.
type CallbackParams struct {
	OrderID string
	OID     string
	Status  string
	Data    string
	// Amount is the gateway's unsigned amt echo. Settlement never reads it:
	// the only trusted amount is total_amount inside the signed payload.
	Amount string
	RefID  string
}

// PaymentService owns the payment lifecycle: initiation toward the gateway
// and settlement of its callbacks.
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	orderRepo      repository.OrderRepository
	catalog        repository.CatalogRepository
	builder        *gateway.Builder
	gatewayCfg     config.GatewayConfig
	notifier       clients.NotificationSender
	eventPublisher events.Publisher
	logger         *logrus.Entry
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	catalog repository.CatalogRepository,
	builder *gateway.Builder,
	gatewayCfg config.GatewayConfig,
	notifier clients.NotificationSender,
	eventPublisher events.Publisher,
	logger *logrus.Entry,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		orderRepo:      orderRepo,
		catalog:        catalog,
		builder:        builder,
		gatewayCfg:     gatewayCfg,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		logger:         logger.WithField("component", "payment-service"),
	}
}

// InitiatePayment builds a signed redirect payload for one payment attempt.
// A COMPLETED payment is terminal and cannot be re-initiated; a PENDING or
// FAILED row is reused with a fresh transaction id.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID int64, amount float64) (*gateway.RedirectPayload, error) {
	if amount <= 0 {
		return nil, apperr.NewValidationError("amount", "amount must be positive")
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	transactionID := uuid.NewString()

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		_, err = s.paymentRepo.Create(ctx, &models.Payment{
			OrderID:       orderID,
			UserID:        order.UserID,
			TransactionID: transactionID,
			Amount:        amount,
			Status:        models.PaymentStatusPending,
			PaymentDate:   time.Now(),
		})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case payment.Status == models.PaymentStatusCompleted:
		return nil, apperr.NewConflictError("payment for order %d already settled", orderID)
	default:
		// PENDING or FAILED: reuse the row for this attempt.
		if err := s.paymentRepo.ResetForRetry(ctx, payment.ID, transactionID, amount); err != nil {
			return nil, err
		}
	}

	payload := s.builder.BuildRedirect(orderID, amount, transactionID)
	metrics.PaymentInitiations.Inc()

	s.logger.WithFields(logrus.Fields{
		"order_id":       orderID,
		"transaction_id": transactionID,
		"amount":         amount,
	}).Info("Payment initiated")

	return &payload, nil
}

// Settle reconciles a gateway callback with the stored payment. The failure
// path needs no signature check; the success path never advances state
// without one.
func (s *PaymentService) Settle(ctx context.Context, params CallbackParams) (models.StatusResponse, error) {
	orderID, err := normalizeOrderID(params)
	if err != nil {
		return models.StatusResponse{}, err
	}

	logger := s.logger.WithField("order_id", orderID)

	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.StatusResponse{}, apperr.NewGatewayProtocolError(
				"callback for order %d with no payment record", orderID)
		}
		return models.StatusResponse{}, err
	}

	// Gateways redeliver callbacks; a settled payment stays settled.
	if payment.Status == models.PaymentStatusCompleted {
		logger.Info("Callback replay for settled payment, ignoring")
		return models.NewStatusResponse(ResultCompleted, "payment already settled"), nil
	}

	if strings.EqualFold(params.Status, "failed") {
		if err := s.paymentRepo.MarkFailed(ctx, payment.ID, orderID); err != nil {
			return models.StatusResponse{}, err
		}
		metrics.PaymentSettlements.WithLabelValues("failed").Inc()
		s.publishFailed(ctx, payment)
		logger.Info("Payment failed, order cancelled")
		return models.NewStatusResponse(ResultFailed, "payment failed, order cancelled"), nil
	}

	data := extractData(params)
	if data == "" {
		metrics.PaymentSettlements.WithLabelValues("error").Inc()
		return models.StatusResponse{}, apperr.NewGatewayProtocolError(
			"success callback without data payload for order %d", orderID)
	}

	payload, err := gateway.DecodeSuccessPayload(data)
	if err != nil {
		metrics.PaymentSettlements.WithLabelValues("error").Inc()
		return models.StatusResponse{}, err
	}

	// Trust boundary: amount and outcome come from the payload, so nothing is
	// persisted unless the payload authenticates.
	if !payload.VerifySignature(s.gatewayCfg.SecretKey) {
		metrics.PaymentSettlements.WithLabelValues("rejected").Inc()
		logger.WithField("transaction_uuid", payload.TransactionUUID).
			Warn("Callback signature verification failed")
		return models.NewStatusResponse(ResultFailed, "invalid transaction signature"), nil
	}

	if !payload.IsComplete() {
		metrics.PaymentSettlements.WithLabelValues("rejected").Inc()
		logger.WithField("gateway_status", payload.Status).
			Warn("Authentic callback with non-complete status")
		return models.NewStatusResponse(ResultFailed,
			fmt.Sprintf("transaction status is %s", payload.Status)), nil
	}

	amount, err := gateway.ParseAmount(payload.TotalAmount)
	if err != nil {
		metrics.PaymentSettlements.WithLabelValues("error").Inc()
		return models.StatusResponse{}, apperr.NewGatewayProtocolError(
			"unparseable total_amount %q", payload.TotalAmount)
	}

	if err := s.paymentRepo.MarkCompleted(ctx, payment.ID, payload.TransactionCode, amount); err != nil {
		return models.StatusResponse{}, err
	}
	metrics.PaymentSettlements.WithLabelValues("completed").Inc()

	settled := *payment
	settled.TransactionID = payload.TransactionCode
	settled.Amount = amount
	settled.Status = models.PaymentStatusCompleted

	if err := s.eventPublisher.PublishPaymentCompleted(ctx, &settled); err != nil {
		logger.WithField("error", err.Error()).Error("Failed to publish payment completed event")
	}

	// Confirmation email is fire-and-forget; its failure never rolls back the
	// settlement.
	go s.sendOrderConfirmation(context.Background(), &settled)

	logger.WithFields(logrus.Fields{
		"transaction_code": payload.TransactionCode,
		"amount":           amount,
	}).Info("Payment settled")

	return models.NewStatusResponse(ResultCompleted, "payment completed"), nil
}

// ListPayments retrieves payments for the back office, optionally filtered by
// status.
func (s *PaymentService) ListPayments(ctx context.Context, status string) ([]models.PaymentView, error) {
	if status != "" && !models.ValidPaymentStatus(models.PaymentStatus(status)) {
		return nil, apperr.NewValidationError("status", "unknown payment status")
	}

	payments, err := s.paymentRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}

	views := make([]models.PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, models.NewPaymentView(p))
	}
	return views, nil
}

func (s *PaymentService) publishFailed(ctx context.Context, payment *models.Payment) {
	failed := *payment
	failed.Status = models.PaymentStatusFailed
	if err := s.eventPublisher.PublishPaymentFailed(ctx, &failed); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		}).Error("Failed to publish payment failed event")
	}
}

func (s *PaymentService) sendOrderConfirmation(ctx context.Context, payment *models.Payment) {
	user, err := s.catalog.GetUser(ctx, payment.UserID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		}).Error("Failed to load user for confirmation email")
		return
	}

	guides, err := s.catalog.GuidesForOrder(ctx, payment.OrderID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		}).Error("Failed to load guides for confirmation email")
		guides = nil
	}

	req := &clients.OrderConfirmationRequest{
		To:      user.Email,
		Subject: "Order Confirmation",
		Body: fmt.Sprintf("Your payment of %s for order %d was received.",
			gateway.FormatAmount(payment.Amount), payment.OrderID),
		OrderID: payment.OrderID,
		Guides:  guides,
	}

	if err := s.notifier.SendOrderConfirmation(ctx, req); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"error":    err.Error(),
		}).Error("Failed to send order confirmation")
	}
}

// normalizeOrderID accepts either order id alias on the callback URL.
func normalizeOrderID(params CallbackParams) (int64, error) {
	raw := params.OrderID
	if raw == "" {
		raw = params.OID
	}
	if raw == "" {
		return 0, apperr.NewGatewayProtocolError("callback carries no order id")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.NewGatewayProtocolError("unparseable order id %q", raw)
	}
	return id, nil
}

// extractData returns the base64 success payload. Some gateway redirects glue
// the data parameter onto refId instead of sending it on its own.
func extractData(params CallbackParams) string {
	if params.Data != "" {
		return params.Data
	}
	if idx := strings.Index(params.RefID, "?data="); idx >= 0 {
		return params.RefID[idx+len("?data="):]
	}
	return ""
}
