// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/domain/product"
	"github.com/your-org/cart-backend/internal/domain/user"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("🔄 Running database auto-migrations...")

	models := []interface{}{
		&user.User{},
		&product.Product{},
		&cart.Cart{},
	}

	for _, model := range models {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	m.logger.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_carts_updated_at ON carts(updated_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts a demo user and catalogue. It is safe to run repeatedly.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("🌱 Seeding initial data...")

	if err := m.seedDemoUser(); err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.logger.Info("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedDemoUser() error {
	var existing user.User
	result := m.db.Where("username = ?", "demo").First(&existing)
	if result.Error == nil {
		m.logger.Info("⏭️ Demo user already exists")
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	demo := user.User{
		Username: "demo",
		Password: string(hashedPassword),
	}
	if err := m.db.Create(&demo).Error; err != nil {
		return err
	}

	m.logger.Info("✅ Created demo user: demo (password: password123)")
	return nil
}

func (m *Migration) seedProducts() error {
	var productCount int64
	if err := m.db.Model(&product.Product{}).Count(&productCount).Error; err != nil {
		return err
	}
	if productCount > 0 {
		m.logger.Info("⏭️ Products already exist")
		return nil
	}

	products := []product.Product{
		{Name: "Premium Gaming Laptop", Price: decimal.RequireFromString("1999.99"), Stock: 25},
		{Name: "Wireless Gaming Mouse", Price: decimal.RequireFromString("79.99"), Stock: 50},
		{Name: "Bluetooth Noise-Cancelling Headphones", Price: decimal.RequireFromString("159.99"), Stock: 30},
	}

	for i := range products {
		if err := m.db.Create(&products[i]).Error; err != nil {
			m.logger.WithError(err).Warnf("⚠️ Failed to create product %s", products[i].Name)
			continue
		}
		m.logger.Infof("✅ Created product: %s", products[i].Name)
	}

	return nil
}
