// Package service holds the checkout business logic: order assembly, discount
// resolution, payment initiation and callback settlement.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/events"
	"github.com/pujakriti/checkout-service/internal/metrics"
	"github.com/pujakriti/checkout-service/internal/models"
	"github.com/pujakriti/checkout-service/internal/repository"
)

// OrderService assembles orders from carts and projects order state for
// readers.
type OrderService struct {
	orderRepo      repository.OrderRepository
	catalog        repository.CatalogRepository
	cartStore      repository.CartStore
	paymentRepo    repository.PaymentRepository
	discountRepo   repository.DiscountRepository
	discounts      *DiscountService
	eventPublisher events.Publisher
	logger         *logrus.Entry
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	catalog repository.CatalogRepository,
	cartStore repository.CartStore,
	paymentRepo repository.PaymentRepository,
	discountRepo repository.DiscountRepository,
	discounts *DiscountService,
	eventPublisher events.Publisher,
	logger *logrus.Entry,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		catalog:        catalog,
		cartStore:      cartStore,
		paymentRepo:    paymentRepo,
		discountRepo:   discountRepo,
		discounts:      discounts,
		eventPublisher: eventPublisher,
		logger:         logger.WithField("component", "order-service"),
	}
}

// CreateOrder converts a cart plus address and optional discount into a
// persisted order, then deletes the cart. The cart id stays on the order so a
// second attempt with the same cart is rejected even after the cart row is
// gone.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreatedOrder, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"cart_id": req.CartID,
	}).Info("Creating order")

	if err := ValidateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	// Referenced entities that are missing at creation time are request
	// problems, not lookup misses.
	if _, err := s.catalog.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NewValidationError("userId", "user not found")
		}
		return nil, err
	}

	address, err := s.catalog.GetAddress(ctx, req.AddressID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NewValidationError("addressId", "address not found")
		}
		return nil, err
	}
	if address.UserID != req.UserID {
		return nil, apperr.NewValidationError("addressId", "address does not belong to user")
	}

	cart, err := s.cartStore.Get(ctx, req.CartID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NewValidationError("cartId", "cart not found")
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, apperr.NewValidationError("cartId", "cart is empty")
	}

	var discount *models.DiscountCode
	if req.DiscountCode != "" {
		discount, err = s.discounts.Resolve(ctx, req.DiscountCode)
		if err != nil {
			return nil, err
		}
	}

	lines := make([]models.OrderLine, 0, len(cart.Lines))
	var subtotal float64
	for _, cartLine := range cart.Lines {
		if err := validateCartLine(cartLine); err != nil {
			return nil, err
		}

		target, err := cartLine.Target()
		if err != nil {
			return nil, err
		}

		exists, err := s.catalog.TargetExists(ctx, target)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NewValidationError("cartItems",
				fmt.Sprintf("%s %d does not exist", target.Kind, target.ID))
		}

		subtotal += cartLine.UnitPrice * float64(cartLine.Quantity)
		lines = append(lines, models.OrderLine{
			Target:    target,
			Quantity:  cartLine.Quantity,
			UnitPrice: cartLine.UnitPrice,
		})
	}

	total := subtotal
	var discountID *int64
	if discount != nil {
		total = subtotal * (1 - discount.Rate)
		discountID = &discount.ID
	}

	order := &models.Order{
		UserID:      req.UserID,
		AddressID:   req.AddressID,
		TotalAmount: total,
		Status:      models.OrderStatusPending,
		DiscountID:  discountID,
		CartID:      req.CartID,
		OrderDate:   time.Now(),
		Lines:       lines,
	}

	created, err := s.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	// The cart is consumed. Deletion failure is tolerable: the unique cart_id
	// on the order already blocks a second checkout with this cart.
	if err := s.cartStore.Delete(ctx, req.CartID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"cart_id": req.CartID,
			"error":   err.Error(),
		}).Error("Failed to delete consumed cart")
	}

	metrics.OrdersCreated.Inc()

	if err := s.eventPublisher.PublishOrderCreated(ctx, created); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": created.ID,
			"error":    err.Error(),
		}).Error("Failed to publish order created event")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": created.ID,
		"total":    created.TotalAmount,
	}).Info("Order created successfully")

	return projectCreatedOrder(created), nil
}

// GetUserOrders projects a user's orders with resolved line names, address
// and payment reference.
func (s *OrderService) GetUserOrders(ctx context.Context, userID int64) ([]models.UserOrderView, error) {
	if _, err := s.catalog.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.UserOrderView, 0, len(orders))
	for _, order := range orders {
		view := models.UserOrderView{
			OrderID:     order.ID,
			TotalAmount: order.TotalAmount,
			Status:      string(order.Status),
			OrderDate:   order.OrderDate,
		}

		address, err := s.catalog.GetAddress(ctx, order.AddressID)
		if err != nil {
			return nil, err
		}
		view.AddressStreet = address.Street
		view.AddressCity = address.City
		view.AddressState = address.State

		if err := s.fillDiscount(ctx, order, &view.DiscountCode, &view.DiscountRate); err != nil {
			return nil, err
		}

		payment, err := s.paymentRepo.GetByOrderID(ctx, order.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if payment != nil {
			view.TransactionID = payment.TransactionID
		}

		view.Items, err = s.projectItems(ctx, order.Lines)
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}
	return views, nil
}

// ListOrdersForAdmin projects all orders with buyer identity and payment
// reference for the back office.
func (s *OrderService) ListOrdersForAdmin(ctx context.Context) ([]models.AdminOrderView, error) {
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.AdminOrderView, 0, len(orders))
	for _, order := range orders {
		view := models.AdminOrderView{
			OrderID:     order.ID,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			Status:      string(order.Status),
			OrderDate:   order.OrderDate,
		}

		user, err := s.catalog.GetUser(ctx, order.UserID)
		if err != nil {
			return nil, err
		}
		view.UserName = user.Name

		address, err := s.catalog.GetAddress(ctx, order.AddressID)
		if err != nil {
			return nil, err
		}
		view.Address = strings.Join([]string{address.Street, address.City, address.State}, ", ")

		if err := s.fillDiscount(ctx, order, &view.DiscountCode, &view.DiscountRate); err != nil {
			return nil, err
		}

		payment, err := s.paymentRepo.GetByOrderID(ctx, order.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if payment != nil {
			view.PaymentID = &payment.ID
		}

		view.Items, err = s.projectItems(ctx, order.Lines)
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}
	return views, nil
}

// UpdateOrderStatus advances the fulfillment lifecycle. Settlement never goes
// through here; it only touches the payment row.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	if !models.ValidOrderStatus(status) {
		return apperr.NewValidationError("status", "unknown order status")
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !isValidStatusTransition(order.Status, status) {
		return apperr.NewValidationError("status", fmt.Sprintf(
			"invalid status transition from %s to %s", order.Status, status))
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"old_status": order.Status,
		"new_status": status,
	}).Info("Order status updated")
	return nil
}

func (s *OrderService) fillDiscount(ctx context.Context, order *models.Order, code *string, rate *float64) error {
	if order.DiscountID == nil {
		return nil
	}
	discount, err := s.discountRepo.GetByID(ctx, *order.DiscountID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	*code = discount.Code
	*rate = discount.Rate
	return nil
}

func (s *OrderService) projectItems(ctx context.Context, lines []models.OrderLine) ([]models.OrderItemView, error) {
	items := make([]models.OrderItemView, 0, len(lines))
	for _, line := range lines {
		name, err := s.catalog.TargetName(ctx, line.Target)
		if err != nil {
			return nil, err
		}

		item := models.OrderItemView{
			OrderItemID: line.ID,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
		}
		switch line.Target.Kind {
		case models.TargetBundle:
			item.BundleName = name
		default:
			item.ProductName = name
		}
		items = append(items, item)
	}
	return items, nil
}

func projectCreatedOrder(order *models.Order) *models.CreatedOrder {
	created := &models.CreatedOrder{
		OrderID:     order.ID,
		UserID:      order.UserID,
		AddressID:   order.AddressID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		DiscountID:  order.DiscountID,
		OrderDate:   order.OrderDate,
		Lines:       make([]models.CreatedOrderLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		out := models.CreatedOrderLine{
			OrderItemID: line.ID,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
		}
		id := line.Target.ID
		switch line.Target.Kind {
		case models.TargetBundle:
			out.BundleID = &id
		default:
			out.ProductID = &id
		}
		created.Lines = append(created.Lines, out)
	}
	return created
}
