package models

import "time"

// StatusResponse is the small status object returned to the payment gateway
// redirect: status is one of COMPLETED, FAILED or ERROR.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewStatusResponse builds a StatusResponse.
func NewStatusResponse(status, message string) StatusResponse {
	return StatusResponse{Status: status, Message: message}
}

// CreatedOrder is returned from order creation: the new order id plus a
// projection of its frozen lines.
type CreatedOrder struct {
	OrderID     int64              `json:"orderId"`
	UserID      int64              `json:"userId"`
	AddressID   int64              `json:"addressId"`
	TotalAmount float64            `json:"totalAmount"`
	Status      OrderStatus        `json:"status"`
	DiscountID  *int64             `json:"discountId,omitempty"`
	OrderDate   time.Time          `json:"orderDate"`
	Lines       []CreatedOrderLine `json:"orderItems"`
}

// CreatedOrderLine projects one order line for the creation response.
type CreatedOrderLine struct {
	OrderItemID int64   `json:"orderItemId"`
	ProductID   *int64  `json:"productId,omitempty"`
	BundleID    *int64  `json:"bundleId,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// UserOrderView is the user-facing order projection.
type UserOrderView struct {
	OrderID       int64           `json:"orderId"`
	TotalAmount   float64         `json:"totalAmount"`
	AddressStreet string          `json:"addressStreet"`
	AddressCity   string          `json:"addressCity"`
	AddressState  string          `json:"addressState"`
	Status        string          `json:"status"`
	DiscountCode  string          `json:"discountCode,omitempty"`
	DiscountRate  float64         `json:"discountRate,omitempty"`
	OrderDate     time.Time       `json:"orderDate"`
	Items         []OrderItemView `json:"orderItems"`
	TransactionID string          `json:"transactionId,omitempty"`
}

// AdminOrderView is the admin-facing order projection.
type AdminOrderView struct {
	OrderID      int64           `json:"orderId"`
	UserID       int64           `json:"userId"`
	UserName     string          `json:"userName"`
	TotalAmount  float64         `json:"totalAmount"`
	Address      string          `json:"address"`
	Status       string          `json:"status"`
	DiscountCode string          `json:"discountCode,omitempty"`
	DiscountRate float64         `json:"discountRate,omitempty"`
	OrderDate    time.Time       `json:"orderDate"`
	Items        []OrderItemView `json:"orderItems"`
	PaymentID    *int64          `json:"paymentId,omitempty"`
}

// OrderItemView resolves a line to a display name. Exactly one of ProductName
// or BundleName is non-empty, depending on which reference the line carries.
type OrderItemView struct {
	OrderItemID int64   `json:"orderItemId"`
	ProductName string  `json:"productName,omitempty"`
	BundleName  string  `json:"bundleName,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// PaymentView is the admin-facing payment projection.
type PaymentView struct {
	PaymentID     int64         `json:"paymentId"`
	OrderID       int64         `json:"orderId"`
	UserID        int64         `json:"userId"`
	TransactionID string        `json:"transactionId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	PaymentDate   time.Time     `json:"paymentDate"`
}

// NewPaymentView projects a payment row.
func NewPaymentView(p *Payment) PaymentView {
	return PaymentView{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Status:        p.Status,
		PaymentDate:   p.PaymentDate,
	}
}
