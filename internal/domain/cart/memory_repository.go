// internal/domain/cart/memory_repository.go
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/cart-backend/internal/pkg/apperrors"
)

// MemoryRepository keeps carts in process memory. Every read and write copies
// the cart so callers never share state with the store.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*Cart)}
}

// Load implements Repository
func (r *MemoryRepository) Load(ctx context.Context, userID string) (*Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Store("load cart", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart for user %s", userID)
	}
	c := stored.Clone()
	c.Normalize()
	return c, nil
}

// Insert implements Repository
func (r *MemoryRepository) Insert(ctx context.Context, c *Cart) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Store("insert cart", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[c.UserID]; ok {
		return apperrors.Conflict("cart for user %s already exists", c.UserID)
	}
	r.carts[c.UserID] = c.Clone()
	return nil
}

// Save implements Repository
func (r *MemoryRepository) Save(ctx context.Context, c *Cart) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Store("save cart", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.carts[c.UserID]
	if !ok || stored.ID != c.ID || stored.Version != c.Version {
		return apperrors.Conflict("cart %s was modified concurrently", c.ID)
	}

	c.Version++
	c.UpdatedAt = time.Now().UTC()
	r.carts[c.UserID] = c.Clone()
	return nil
}
