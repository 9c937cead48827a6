// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/your-org/cart-backend/internal/config"
	"github.com/your-org/cart-backend/internal/domain/product"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
	"github.com/your-org/cart-backend/internal/pkg/events"
)

// Event types published on the cart topic
const (
	EventCartCreated     = "cart_created"
	EventItemAdded       = "item_added"
	EventItemRemoved     = "item_removed"
	EventItemUpdated     = "item_updated"
	EventCartEmptied     = "cart_emptied"
	EventDiscountApplied = "discount_applied"
	EventCartSaved       = "cart_saved"
	EventCartRestored    = "cart_restored"
)

// ProductLookup resolves product ids for pricing and existence checks
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error)
}

// Config carries the cart policy
type Config struct {
	Discounts         DiscountTable
	EnforceUniqueCart bool
	VerifyProducts    bool
	EventTopic        string
}

// NewConfig builds the cart policy from application configuration
func NewConfig(cfg *config.Config) Config {
	return Config{
		Discounts:         NewDiscountTable(cfg.Cart.DiscountCodes),
		EnforceUniqueCart: cfg.Cart.EnforceUniqueCart,
		VerifyProducts:    cfg.Cart.VerifyProducts,
		EventTopic:        cfg.Kafka.CartTopic,
	}
}

// Service handles cart business logic
type Service struct {
	repo      Repository
	products  ProductLookup
	locker    Locker
	cfg       Config
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewService creates a new cart service
func NewService(repo Repository, products ProductLookup, locker Locker, cfg Config, publisher events.Publisher, logger *logrus.Logger) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.Discounts == nil {
		cfg.Discounts = DiscountTable{}
	}
	return &Service{
		repo:      repo,
		products:  products,
		locker:    locker,
		cfg:       cfg,
		publisher: publisher,
		logger:    logger,
	}
}

// CartItemResponse represents a cart item with product details.
// Product is nil when the product no longer exists.
type CartItemResponse struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *product.Product `json:"product"`
}

// CartResponse represents a cart with its items resolved against the product store
type CartResponse struct {
	ID                  string             `json:"id"`
	UserID              string             `json:"userId"`
	Items               []CartItemResponse `json:"items"`
	AppliedDiscountCode *string            `json:"appliedDiscountCode"`
	SavedItems          []CartItem         `json:"savedItems,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Summary represents cart totals
type Summary struct {
	ItemCount  int             `json:"itemCount"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// DiscountResult is the outcome of applying a discount code
type DiscountResult struct {
	DiscountApplied bool            `json:"discountApplied"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

// QuoteLine is one priced cart line
type QuoteLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Quote is a fully priced view of a cart
type Quote struct {
	CartID         string          `json:"cartId"`
	UserID         string          `json:"userId"`
	Lines          []QuoteLine     `json:"lines"`
	ItemCount      int             `json:"itemCount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   string          `json:"discountCode,omitempty"`
	DiscountRate   decimal.Decimal `json:"discountRate"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// RemoveItemRequest represents remove from cart request
type RemoveItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// UpdateItemRequest represents update cart item request.
// Quantity is validated by the service so that zero and negatives map to the same error.
type UpdateItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// DiscountRequest represents apply discount request
type DiscountRequest struct {
	Code string `json:"code"`
}

// CreateCart creates an empty cart for the user
func (s *Service) CreateCart(ctx context.Context, userID string) (*Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.Load(ctx, userID)
	switch {
	case err == nil:
		if s.cfg.EnforceUniqueCart {
			return nil, apperrors.Conflict("cart for user %s already exists", userID)
		}
		existing.Reset()
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.publish(ctx, EventCartCreated, existing, nil)
		return existing, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	c := NewCart(userID)
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, EventCartCreated, c, nil)
	return c, nil
}

// GetCart returns the user's cart with product details
func (s *Service) GetCart(ctx context.Context, userID string) (*CartResponse, error) {
	c, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.products.FindByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}

	items := make([]CartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   products[item.ProductID],
		}
	}

	return &CartResponse{
		ID:                  c.ID,
		UserID:              c.UserID,
		Items:               items,
		AppliedDiscountCode: c.AppliedDiscountCode,
		SavedItems:          c.SavedItems,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}, nil
}

// AddItem adds quantity units of a product to the cart
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if productID == "" {
		return nil, apperrors.Validation("product id is required")
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	if s.cfg.VerifyProducts {
		found, err := s.products.FindByIDs(ctx, []string{productID})
		if err != nil {
			return nil, err
		}
		if found[productID] == nil {
			return nil, apperrors.NotFound("product %s", productID)
		}
	}

	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		// Both operands are at most MaxLineQuantity, so the sum cannot overflow
		if c.QuantityOf(productID)+quantity > MaxLineQuantity {
			return apperrors.Validation("quantity for product %s would exceed %d", productID, MaxLineQuantity)
		}
		c.AddItem(productID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventItemAdded, c, map[string]any{"productId": productID, "quantity": quantity})
	return c, nil
}

// RemoveItem removes every line for the product. Removing an absent product is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	var removed bool
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		removed = c.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		s.publish(ctx, EventItemRemoved, c, map[string]any{"productId": productID})
	}
	return c, nil
}

// UpdateItemQuantity sets the quantity of a product already in the cart
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		if !c.SetQuantity(productID, quantity) {
			return apperrors.NotFound("product %s in cart", productID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventItemUpdated, c, map[string]any{"productId": productID, "quantity": quantity})
	return c, nil
}

// GetSummary returns the item count and undiscounted total
func (s *Service) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	c, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, total, err := s.priceItems(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	return &Summary{
		ItemCount:  c.ItemCount(),
		TotalPrice: total,
	}, nil
}

// EmptyCart removes all items
func (s *Service) EmptyCart(ctx context.Context, userID string) error {
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		c.Empty()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventCartEmptied, c, nil)
	return nil
}

// ApplyDiscount records code on the cart and returns the discounted total.
// An unknown code clears any stored code and leaves the total unchanged.
func (s *Service) ApplyDiscount(ctx context.Context, userID, code string) (*DiscountResult, error) {
	var result DiscountResult
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		_, raw, err := s.priceItems(ctx, c.Items)
		if err != nil {
			return err
		}

		factor, ok := s.cfg.Discounts.Lookup(code)
		if ok {
			stored := code
			c.AppliedDiscountCode = &stored
		} else {
			c.AppliedDiscountCode = nil
		}

		result = DiscountResult{
			DiscountApplied: ok,
			TotalPrice:      Apply(raw, factor),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventDiscountApplied, c, map[string]any{"code": code, "applied": result.DiscountApplied})
	return &result, nil
}

// SaveCart snapshots the current items
func (s *Service) SaveCart(ctx context.Context, userID string) error {
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		c.SaveSnapshot()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventCartSaved, c, map[string]any{"items": len(c.SavedItems)})
	return nil
}

// RestoreCart replaces the items with the last snapshot
func (s *Service) RestoreCart(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.mutate(ctx, userID, func(c *Cart) error {
		c.RestoreSnapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventCartRestored, c, map[string]any{"items": len(c.Items)})
	return c, nil
}

// GetQuote prices every line and applies the stored discount code
func (s *Service) GetQuote(ctx context.Context, userID string) (*Quote, error) {
	c, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, subtotal, err := s.priceItems(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		CartID:       c.ID,
		UserID:       c.UserID,
		Lines:        lines,
		ItemCount:    c.ItemCount(),
		Subtotal:     subtotal,
		DiscountRate: decimal.Zero,
		Total:        subtotal,
		GeneratedAt:  time.Now().UTC(),
	}

	// A code removed from configuration after it was applied no longer counts
	if c.AppliedDiscountCode != nil {
		if factor, ok := s.cfg.Discounts.Lookup(*c.AppliedDiscountCode); ok {
			quote.DiscountCode = *c.AppliedDiscountCode
			quote.DiscountRate = factor
			quote.Total = Apply(subtotal, factor)
		}
	}
	quote.DiscountAmount = subtotal.Sub(quote.Total)

	return quote, nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return apperrors.Validation("quantity must be greater than zero")
	}
	if quantity > MaxLineQuantity {
		return apperrors.Validation("quantity must not exceed %d", MaxLineQuantity)
	}
	return nil
}

// mutate runs fn against the freshly loaded cart under the user's lock and
// persists the result.
func (s *Service) mutate(ctx context.Context, userID string, fn func(c *Cart) error) (*Cart, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "cart:"+userID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Conflict("cart for user %s is busy", userID)
		}
		return nil, apperrors.Store("lock cart", err)
	}
	return unlock, nil
}

// priceItems joins items with the product store. A line whose product no
// longer exists fails the whole calculation.
func (s *Service) priceItems(ctx context.Context, items []CartItem) ([]QuoteLine, decimal.Decimal, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lines := make([]QuoteLine, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || p == nil {
			return nil, decimal.Zero, apperrors.NotFound("product %s referenced by cart", item.ProductID)
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, QuoteLine{
			ProductID: item.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return lines, total, nil
}

func (s *Service) publish(ctx context.Context, eventType string, c *Cart, data map[string]any) {
	event := events.Event{
		Type:        eventType,
		AggregateID: c.ID,
		UserID:      c.UserID,
		Data:        data,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, s.cfg.EventTopic, c.ID, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":   eventType,
			"cart_id": c.ID,
			"user_id": c.UserID,
		}).Warn("Failed to publish cart event")
	}
}
