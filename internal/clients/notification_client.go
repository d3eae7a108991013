// Package clients holds HTTP clients for external collaborators.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/models"
)

// NotificationSender delivers order-confirmation email through the external
// notification service. Settlement treats it as fire-and-forget: a delivery
// failure never rolls back payment state.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, req *OrderConfirmationRequest) error
}

// OrderConfirmationRequest asks the notification service to email the buyer,
// attaching the named digital guides. Rendering the guide PDFs is the
// notification service's concern.
type OrderConfirmationRequest struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Body     string         `json:"body"`
	OrderID  int64          `json:"orderId"`
	GuideIDs []int64        `json:"guideIds,omitempty"`
	Guides   []models.Guide `json:"guides,omitempty"`
}

// HTTPNotificationClient implements NotificationSender over HTTP.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logrus.Entry
}

var _ NotificationSender = (*HTTPNotificationClient)(nil)

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logrus.Entry) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger.WithField("component", "notification-client"),
	}
}

// SendOrderConfirmation sends the order-confirmation email request.
func (c *HTTPNotificationClient) SendOrderConfirmation(ctx context.Context, req *OrderConfirmationRequest) error {
	c.logger.WithFields(logrus.Fields{
		"to":       req.To,
		"order_id": req.OrderID,
		"guides":   len(req.Guides),
	}).Debug("Sending order confirmation")

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/notifications/order-confirmation", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"order_id": req.OrderID,
			"error":    err.Error(),
		}).Error("Failed to send order confirmation")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"to":       req.To,
		"order_id": req.OrderID,
	}).Info("Order confirmation sent")

	return nil
}
