package service

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/clients"
	"github.com/pujakriti/checkout-service/internal/models"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// Function-field mocks: tests install only the calls they expect, anything
// else returns not-found or succeeds silently.

type mockOrderRepo struct {
	createFn       func(ctx context.Context, order *models.Order) (*models.Order, error)
	getByIDFn      func(ctx context.Context, id int64) (*models.Order, error)
	listByUserFn   func(ctx context.Context, userID int64) ([]*models.Order, error)
	listFn         func(ctx context.Context) ([]*models.Order, error)
	updateStatusFn func(ctx context.Context, id int64, status models.OrderStatus) error
	created        []*models.Order
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	order.ID = int64(len(m.created) + 1)
	m.created = append(m.created, order)
	return order, nil
}

func (m *mockOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, apperr.ErrNotFound
}

func (m *mockOrderRepo) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context) ([]*models.Order, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

type mockCatalog struct {
	users     map[int64]*models.User
	addresses map[int64]*models.Address
	existsFn  func(ctx context.Context, target models.LineTarget) (bool, error)
	names     map[models.LineTarget]string
	guides    []models.Guide
}

func (m *mockCatalog) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockCatalog) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	if a, ok := m.addresses[id]; ok {
		return a, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockCatalog) TargetExists(ctx context.Context, target models.LineTarget) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, target)
	}
	return true, nil
}

func (m *mockCatalog) TargetName(ctx context.Context, target models.LineTarget) (string, error) {
	if name, ok := m.names[target]; ok {
		return name, nil
	}
	return "", apperr.ErrNotFound
}

func (m *mockCatalog) GuidesForOrder(ctx context.Context, orderID int64) ([]models.Guide, error) {
	return m.guides, nil
}

type mockCartStore struct {
	carts   map[string]*models.Cart
	deleted []string
}

func (m *mockCartStore) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	if c, ok := m.carts[cartID]; ok {
		return c, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockCartStore) Delete(ctx context.Context, cartID string) error {
	m.deleted = append(m.deleted, cartID)
	delete(m.carts, cartID)
	return nil
}

type mockPaymentRepo struct {
	payments       map[int64]*models.Payment
	resetCalls     int
	completedCalls int
	failedCalls    int
	lastTxnID      string
	lastAmount     float64
}

func (m *mockPaymentRepo) GetByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	if p, ok := m.payments[orderID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if m.payments == nil {
		m.payments = make(map[int64]*models.Payment)
	}
	if _, ok := m.payments[payment.OrderID]; ok {
		return nil, apperr.NewConflictError("payment already exists for order %d", payment.OrderID)
	}
	payment.ID = int64(len(m.payments) + 1)
	m.payments[payment.OrderID] = payment
	m.lastTxnID = payment.TransactionID
	return payment, nil
}

func (m *mockPaymentRepo) ResetForRetry(ctx context.Context, paymentID int64, transactionID string, amount float64) error {
	m.resetCalls++
	m.lastTxnID = transactionID
	for _, p := range m.payments {
		if p.ID == paymentID {
			p.TransactionID = transactionID
			p.Amount = amount
			p.Status = models.PaymentStatusPending
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, paymentID int64, transactionID string, amount float64) error {
	m.completedCalls++
	m.lastTxnID = transactionID
	m.lastAmount = amount
	for _, p := range m.payments {
		if p.ID == paymentID {
			p.TransactionID = transactionID
			p.Amount = amount
			p.Status = models.PaymentStatusCompleted
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, paymentID, orderID int64) error {
	m.failedCalls++
	for _, p := range m.payments {
		if p.ID == paymentID {
			p.Status = models.PaymentStatusFailed
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *mockPaymentRepo) List(ctx context.Context, status string) ([]*models.Payment, error) {
	out := make([]*models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if status == "" || string(p.Status) == status {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockDiscountRepo struct {
	byCode map[string]*models.DiscountCode
}

func (m *mockDiscountRepo) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	if d, ok := m.byCode[code]; ok {
		return d, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockDiscountRepo) GetByID(ctx context.Context, id int64) (*models.DiscountCode, error) {
	for _, d := range m.byCode {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *mockDiscountRepo) ListActive(ctx context.Context) ([]models.DiscountCode, error) {
	out := make([]models.DiscountCode, 0)
	for _, d := range m.byCode {
		if d.IsActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDiscountRepo) SetActive(ctx context.Context, code string, active bool) error {
	d, ok := m.byCode[code]
	if !ok {
		return apperr.ErrNotFound
	}
	d.IsActive = active
	return nil
}

type mockPublisher struct {
	orderCreated     int
	paymentCompleted int
	paymentFailed    int
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	m.orderCreated++
	return nil
}

func (m *mockPublisher) PublishPaymentCompleted(ctx context.Context, payment *models.Payment) error {
	m.paymentCompleted++
	return nil
}

func (m *mockPublisher) PublishPaymentFailed(ctx context.Context, payment *models.Payment) error {
	m.paymentFailed++
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// mockNotifier signals each send on a channel so tests can wait for the
// fire-and-forget goroutine.
type mockNotifier struct {
	sent chan *clients.OrderConfirmationRequest
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{sent: make(chan *clients.OrderConfirmationRequest, 4)}
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, req *clients.OrderConfirmationRequest) error {
	m.sent <- req
	return nil
}
