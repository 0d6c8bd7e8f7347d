package postgres

import (
	"context"
	"errors"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// orderRepository implements outbound.OrderRepositoryPort on the store
// database, with a cache in front of the cached-read path.
type orderRepository struct {
	db     *gorm.DB
	cache  outbound.OrderCachePort
	logger *zap.Logger
}

// NewOrderRepository creates an order repository. cache may be nil.
func NewOrderRepository(db *gorm.DB, cache outbound.OrderCachePort, logger *zap.Logger) outbound.OrderRepositoryPort {
	return &orderRepository{db: db, cache: cache, logger: logger}
}

func (r *orderRepository) FetchOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, &order); err != nil {
			r.logger.Warn("order cache write failed", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	return &order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	if r.cache != nil {
		order, err := r.cache.Get(ctx, id)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, outbound.ErrCacheMiss) {
			r.logger.Warn("order cache read failed", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	return r.FetchOrderByID(ctx, id)
}

func (r *orderRepository) InvalidateOrder(ctx context.Context, id int64) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, id)
}
