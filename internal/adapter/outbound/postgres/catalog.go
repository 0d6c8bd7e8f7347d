package postgres

import (
	"context"

	"github.com/storekit/cardpay/internal/port/outbound"
	"gorm.io/gorm"
)

// OrderItem is a line item row, read only for the subscription check.
type OrderItem struct {
	ID             int64 `gorm:"primaryKey"`
	OrderID        int64
	ProductID      int64
	IsSubscription bool
}

// productCatalog implements outbound.ProductCatalogPort.
type productCatalog struct {
	db *gorm.DB
}

// NewProductCatalog creates a product catalog adapter.
func NewProductCatalog(db *gorm.DB) outbound.ProductCatalogPort {
	return &productCatalog{db: db}
}

func (c *productCatalog) OrderHasSubscriptionItems(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&OrderItem{}).
		Where("order_id = ? AND is_subscription", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
