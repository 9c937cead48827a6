// internal/infrastructure/database/postgres/cart_repository.go
package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
)

// CartRepository stores carts in the carts table
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a gorm backed cart.Repository
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

var _ cart.Repository = (*CartRepository)(nil)

// Load implements cart.Repository
func (r *CartRepository) Load(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("cart for user %s", userID)
		}
		return nil, apperrors.Store("load cart", err)
	}
	return &c, nil
}

// Insert implements cart.Repository. The unique index on user_id rejects a second cart.
func (r *CartRepository) Insert(ctx context.Context, c *cart.Cart) error {
	c.Normalize()
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("cart for user %s already exists", c.UserID)
		}
		return apperrors.Store("insert cart", err)
	}
	return nil
}

// Save implements cart.Repository with an optimistic version check
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	c.Normalize()
	next := c.Version + 1
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&cart.Cart{ID: c.ID}).
		Where("version = ?", c.Version).
		Select("items", "applied_discount_code", "saved_items", "version", "updated_at").
		Updates(&cart.Cart{
			Items:               c.Items,
			AppliedDiscountCode: c.AppliedDiscountCode,
			SavedItems:          c.SavedItems,
			Version:             next,
			UpdatedAt:           now,
		})
	if result.Error != nil {
		return apperrors.Store("save cart", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Conflict("cart %s was modified concurrently", c.ID)
	}

	c.Version = next
	c.UpdatedAt = now
	return nil
}
