// Package server assembles the gin router for the checkout service.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/handlers"
	"github.com/pujakriti/checkout-service/internal/metrics"
)

// Server owns the HTTP listener and routing table.
type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	logger   *logrus.Entry
}

// NewServer creates the server and registers all routes.
func NewServer(cfg *config.Config, h *handlers.Handlers, logger *logrus.Entry) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(metrics.RequestDuration())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger.WithField("component", "server"),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/orders", s.handlers.CreateOrder)
		api.GET("/orders", s.handlers.ListOrders)
		api.PUT("/orders/:orderId/status", s.handlers.UpdateOrderStatus)
		api.GET("/users/:userId/orders", s.handlers.GetUserOrders)

		api.GET("/payments", s.handlers.ListPayments)
		api.GET("/payments/initiate", s.handlers.InitiatePayment)
		api.GET("/payments/verify", s.handlers.VerifyPayment)

		api.GET("/discounts", s.handlers.ListDiscounts)
		api.PUT("/discounts/:code/active", s.handlers.SetDiscountActive)
	}
}

// HTTPServer builds the http.Server so the caller controls startup and
// graceful shutdown.
func (s *Server) HTTPServer() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("HTTP server configured")

	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// requestID echoes or assigns an X-Request-ID so callbacks and storefront
// calls can be correlated across services.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
