// internal/domain/cart/repository.go
package cart

import "context"

// Repository persists one cart per user.
//
// Load returns an apperrors.ErrNotFound error when the user has no cart.
// Insert returns apperrors.ErrConflict when one already exists. Save writes
// only if the stored version still equals c.Version, bumps c.Version on
// success and returns apperrors.ErrConflict otherwise.
type Repository interface {
	Load(ctx context.Context, userID string) (*Cart, error)
	Insert(ctx context.Context, c *Cart) error
	Save(ctx context.Context, c *Cart) error
}
