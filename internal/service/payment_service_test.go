package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/gateway"
	"github.com/pujakriti/checkout-service/internal/models"
)

var testGatewayConfig = config.GatewayConfig{
	FormURL:       "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
	MerchantCode:  "EPAYTEST",
	SecretKey:     "test-secret",
	ReturnBaseURL: "https://localhost:3000/payment-verify",
}

type paymentServiceFixture struct {
	service   *PaymentService
	payments  *mockPaymentRepo
	orderRepo *mockOrderRepo
	catalog   *mockCatalog
	publisher *mockPublisher
	notifier  *mockNotifier
}

func newPaymentServiceFixture() *paymentServiceFixture {
	f := &paymentServiceFixture{
		payments: &mockPaymentRepo{payments: map[int64]*models.Payment{}},
		orderRepo: &mockOrderRepo{
			getByIDFn: func(ctx context.Context, id int64) (*models.Order, error) {
				if id == 42 {
					return &models.Order{ID: 42, UserID: 1, TotalAmount: 180.0, Status: models.OrderStatusPending}, nil
				}
				return nil, apperr.ErrNotFound
			},
		},
		catalog: &mockCatalog{
			users: map[int64]*models.User{
				1: {ID: 1, Name: "Asha", Email: "asha@example.com"},
			},
			guides: []models.Guide{{ID: 9, Name: "Dashain Puja Guide"}},
		},
		publisher: &mockPublisher{},
		notifier:  newMockNotifier(),
	}

	f.service = NewPaymentService(
		f.payments, f.orderRepo, f.catalog,
		gateway.NewBuilder(testGatewayConfig), testGatewayConfig,
		f.notifier, f.publisher, testLogger(),
	)
	return f
}

func signedCallbackData(t *testing.T, status, totalAmount string) string {
	t.Helper()
	p := gateway.SuccessPayload{
		TransactionCode:  "000ABC1",
		Status:           status,
		TotalAmount:      totalAmount,
		TransactionUUID:  "txn-uuid-1",
		ProductCode:      "EPAYTEST",
		SignedFieldNames: "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
	p.Signature = gateway.SignFields([]gateway.Field{
		{Name: "transaction_code", Value: p.TransactionCode},
		{Name: "status", Value: p.Status},
		{Name: "total_amount", Value: strings.ReplaceAll(p.TotalAmount, ",", "")},
		{Name: "transaction_uuid", Value: p.TransactionUUID},
		{Name: "product_code", Value: p.ProductCode},
		{Name: "signed_field_names", Value: p.SignedFieldNames},
	}, testGatewayConfig.SecretKey)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestInitiatePayment_FirstAttempt(t *testing.T) {
	f := newPaymentServiceFixture()

	payload, err := f.service.InitiatePayment(context.Background(), 42, 180.0)
	require.NoError(t, err)

	assert.Equal(t, "180.00", payload.TotalAmount)
	assert.NotEmpty(t, payload.Signature)

	stored := f.payments.payments[42]
	require.NotNil(t, stored)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, payload.TransactionUUID, stored.TransactionID)
}

func TestInitiatePayment_StampsPaymentDate(t *testing.T) {
	f := newPaymentServiceFixture()

	before := time.Now()
	_, err := f.service.InitiatePayment(context.Background(), 42, 180.0)
	require.NoError(t, err)

	stored := f.payments.payments[42]
	require.NotNil(t, stored)
	assert.False(t, stored.PaymentDate.IsZero())
	assert.False(t, stored.PaymentDate.Before(before))
}

func TestInitiatePayment_CompletedIsTerminal(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "settled-txn", Amount: 180.0,
		Status: models.PaymentStatusCompleted,
	}

	_, err := f.service.InitiatePayment(context.Background(), 42, 180.0)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// No new transaction id was written anywhere.
	assert.Equal(t, "settled-txn", f.payments.payments[42].TransactionID)
	assert.Zero(t, f.payments.resetCalls)
}

func TestInitiatePayment_RetryRegeneratesTransactionID(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "old-txn", Amount: 180.0,
		Status: models.PaymentStatusFailed,
	}

	payload, err := f.service.InitiatePayment(context.Background(), 42, 180.0)
	require.NoError(t, err)

	assert.Equal(t, 1, f.payments.resetCalls)
	assert.NotEqual(t, "old-txn", payload.TransactionUUID)
	assert.Equal(t, models.PaymentStatusPending, f.payments.payments[42].Status)
}

func TestInitiatePayment_UnknownOrder(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.InitiatePayment(context.Background(), 99, 180.0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInitiatePayment_NonPositiveAmount(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.InitiatePayment(context.Background(), 42, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestSettle_FailureCallback(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "txn-1", Amount: 180.0,
		Status: models.PaymentStatusPending,
	}

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OID:    "42",
		Status: "failed",
	})
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, result.Status)
	assert.Equal(t, 1, f.payments.failedCalls)
	assert.Equal(t, 1, f.publisher.paymentFailed)
	// The failure path has no payload, so nothing to verify.
	assert.Zero(t, f.payments.completedCalls)
}

func TestSettle_SuccessCallback(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "txn-1", Amount: 180.0,
		Status: models.PaymentStatusPending,
	}

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		Data:    signedCallbackData(t, "COMPLETE", "1,180.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, ResultCompleted, result.Status)
	assert.Equal(t, 1, f.payments.completedCalls)
	assert.Equal(t, "000ABC1", f.payments.lastTxnID)
	assert.Equal(t, 1180.0, f.payments.lastAmount)
	assert.Equal(t, 1, f.publisher.paymentCompleted)

	select {
	case req := <-f.notifier.sent:
		assert.Equal(t, "asha@example.com", req.To)
		require.Len(t, req.Guides, 1)
		assert.Equal(t, "Dashain Puja Guide", req.Guides[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("Expected confirmation email to be sent")
	}
}

func TestSettle_IgnoresUnsignedAmountEcho(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "txn-1", Amount: 180.0,
		Status: models.PaymentStatusPending,
	}

	// The amt query parameter is outside the signature; only the signed
	// payload's total_amount may decide what gets persisted.
	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		Amount:  "1.00",
		Data:    signedCallbackData(t, "COMPLETE", "180.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, ResultCompleted, result.Status)
	assert.Equal(t, 180.0, f.payments.lastAmount)
}

func TestSettle_DataGluedOntoRefID(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1, Status: models.PaymentStatusPending,
	}

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		RefID:   "ESEWA_REF_11111111?data=" + signedCallbackData(t, "COMPLETE", "180.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
}

func TestSettle_MissingDataIsProtocolError(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1, Status: models.PaymentStatusPending,
	}

	_, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsGatewayProtocol(err))
	assert.Zero(t, f.payments.completedCalls)
	assert.Zero(t, f.payments.failedCalls)
}

func TestSettle_TamperedAmountLeavesPaymentUntouched(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "txn-1", Amount: 180.0,
		Status: models.PaymentStatusPending,
	}

	data := signedCallbackData(t, "COMPLETE", "180.00")
	raw, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), "180.00", "1.00", 1)
	data = base64.StdEncoding.EncodeToString([]byte(tampered))

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		Data:    data,
	})
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, result.Status)
	assert.Zero(t, f.payments.completedCalls)
	assert.Zero(t, f.payments.failedCalls)
	assert.Equal(t, models.PaymentStatusPending, f.payments.payments[42].Status)
}

func TestSettle_AuthenticNonCompleteStatus(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1, Status: models.PaymentStatusPending,
	}

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		Data:    signedCallbackData(t, "PENDING", "180.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, result.Status)
	assert.Zero(t, f.payments.completedCalls)
}

func TestSettle_ReplayOfCompletedPayment(t *testing.T) {
	f := newPaymentServiceFixture()
	f.payments.payments[42] = &models.Payment{
		ID: 1, OrderID: 42, UserID: 1,
		TransactionID: "000ABC1", Amount: 1180.0,
		Status: models.PaymentStatusCompleted,
	}

	result, err := f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "success",
		Data:    signedCallbackData(t, "COMPLETE", "1,180.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, ResultCompleted, result.Status)
	assert.Zero(t, f.payments.completedCalls)
	assert.Zero(t, f.publisher.paymentCompleted)
	assert.Empty(t, f.notifier.sent)

	// A late failure callback cannot cancel a settled order either.
	result, err = f.service.Settle(context.Background(), CallbackParams{
		OrderID: "42",
		Status:  "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
	assert.Zero(t, f.payments.failedCalls)
}

func TestSettle_OrderIDAliases(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.Settle(context.Background(), CallbackParams{})
	require.Error(t, err)
	assert.True(t, apperr.IsGatewayProtocol(err))

	_, err = f.service.Settle(context.Background(), CallbackParams{OrderID: "not-a-number"})
	require.Error(t, err)
	assert.True(t, apperr.IsGatewayProtocol(err))
}

func TestSettle_UnknownPayment(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.Settle(context.Background(), CallbackParams{OID: "42", Status: "failed"})
	require.Error(t, err)
	assert.True(t, apperr.IsGatewayProtocol(err))
}

func TestListPayments_UnknownStatusFilter(t *testing.T) {
	f := newPaymentServiceFixture()

	_, err := f.service.ListPayments(context.Background(), "TELEPORTED")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}
