// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/config"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
	"github.com/your-org/cart-backend/internal/pkg/events"
)

// Event types published on the product topic
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
)

// Service handles product business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config, publisher events.Publisher, logger *logrus.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		db:        db,
		config:    cfg,
		publisher: publisher,
		logger:    logger,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=asc"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Name  string           `json:"name" binding:"required"`
	Price *decimal.Decimal `json:"price" binding:"required"`
	Stock int              `json:"stock"`
}

// ProductUpdateRequest represents product update data. Nil fields are left untouched.
type ProductUpdateRequest struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// GetProducts lists products, oldest first unless a sort is requested
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) ([]Product, error) {
	if req == nil {
		req = &ProductListRequest{}
	}

	query := s.db.WithContext(ctx).Model(&Product{})

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ?", search)
	}

	products := make([]Product, 0)
	if err := query.Order(s.buildOrderClause(req.SortBy, req.SortOrder)).Find(&products).Error; err != nil {
		return nil, apperrors.Store("list products", err)
	}

	return products, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %s", id)
		}
		return nil, apperrors.Store("get product", result.Error)
	}

	return &product, nil
}

// FindByIDs loads the given products keyed by id. Missing ids are absent from the map.
func (s *Service) FindByIDs(ctx context.Context, ids []string) (map[string]*Product, error) {
	found := make(map[string]*Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var products []Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, apperrors.Store("find products", err)
	}

	for i := range products {
		found[products[i].ID] = &products[i]
	}
	return found, nil
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if req.Price == nil {
		return nil, apperrors.Validation("product price is required")
	}

	name := strings.TrimSpace(req.Name)
	if err := validateFields(name, *req.Price, req.Stock); err != nil {
		return nil, err
	}

	product := Product{
		Name:  name,
		Price: *req.Price,
		Stock: req.Stock,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, apperrors.Store("create product", err)
	}

	// Respond with what the store holds, not with the request
	created, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventProductCreated, created)

	return created, nil
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(ctx context.Context, id string, req *ProductUpdateRequest) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	// Validate the merged result before writing anything
	name, price, stock := product.Name, product.Price, product.Stock
	updates := make(map[string]interface{})

	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		updates["name"] = name
	}
	if req.Price != nil {
		price = *req.Price
		updates["price"] = price
	}
	if req.Stock != nil {
		stock = *req.Stock
		updates["stock"] = stock
	}

	if err := validateFields(name, price, stock); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, apperrors.Store("update product", err)
	}

	updated, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventProductUpdated, updated)

	return updated, nil
}

// DeleteProduct removes a product. Carts referencing it are left as they are.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Product{})
	if result.Error != nil {
		return apperrors.Store("delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("product %s", id)
	}

	s.publish(ctx, EventProductDeleted, &Product{ID: id})
	return nil
}

// buildOrderClause builds ORDER BY clause for sorting
func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"stock":      true,
		"created_at": true,
		"updated_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "asc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

func (s *Service) publish(ctx context.Context, eventType string, p *Product) {
	event := events.Event{
		Type:        eventType,
		AggregateID: p.ID,
		OccurredAt:  time.Now().UTC(),
	}
	if eventType != EventProductDeleted {
		event.Data = map[string]any{
			"name":  p.Name,
			"price": p.Price.String(),
			"stock": p.Stock,
		}
	}

	if err := s.publisher.Publish(ctx, s.config.Kafka.ProductTopic, p.ID, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"product_id": p.ID,
		}).Warn("Failed to publish product event")
	}
}

func validateFields(name string, price decimal.Decimal, stock int) error {
	if name == "" {
		return apperrors.Validation("product name is required")
	}
	if price.IsNegative() {
		return apperrors.Validation("product price must not be negative")
	}
	if stock < 0 {
		return apperrors.Validation("product stock must not be negative")
	}
	return nil
}
