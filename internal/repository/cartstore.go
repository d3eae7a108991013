package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/apperr"
	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/models"
)

const cartKeyPrefix = "cart:"

// RedisCartStore implements CartStore using Redis. Carts are storefront
// session state: JSON snapshots that live only until checkout consumes them.
type RedisCartStore struct {
	client *redis.Client
	logger *logrus.Entry
}

var _ CartStore = (*RedisCartStore)(nil)

// NewRedisCartStore creates a new Redis-backed cart store.
func NewRedisCartStore(cfg config.RedisConfig, logger *logrus.Entry) *RedisCartStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCartStore{
		client: client,
		logger: logger.WithField("component", "cart-store"),
	}
}

// Get retrieves a cart snapshot by id.
func (s *RedisCartStore) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	data, err := s.client.Get(ctx, cartKeyPrefix+cartID).Bytes()
	if err == redis.Nil {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"cart_id": cartID,
			"error":   err.Error(),
		}).Error("Cart fetch failed")
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	if cart.ID == "" {
		cart.ID = cartID
	}

	return &cart, nil
}

// Delete removes a consumed cart. Deleting an absent key is not an error,
// which makes the post-commit delete safe to repeat.
func (s *RedisCartStore) Delete(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, cartKeyPrefix+cartID).Err(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"cart_id": cartID,
			"error":   err.Error(),
		}).Error("Cart delete failed")
		return err
	}

	s.logger.WithField("cart_id", cartID).Debug("Cart deleted")
	return nil
}

// Ping verifies connectivity for readiness checks.
func (s *RedisCartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
