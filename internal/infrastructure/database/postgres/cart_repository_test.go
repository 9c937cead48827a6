package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/domain/product"
	"github.com/your-org/cart-backend/internal/domain/user"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
	"github.com/your-org/cart-backend/internal/pkg/logger"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, NewMigration(db, logger.Discard()).RunAutoMigrations())
	return db
}

func TestCartRepository_RoundTrip(t *testing.T) {
	repo := NewCartRepository(InitTestDB(t))
	ctx := context.Background()

	_, err := repo.Load(ctx, "u1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	c := cart.NewCart("u1")
	require.NoError(t, repo.Insert(ctx, c))

	loaded, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, loaded.ID)
	assert.NotNil(t, loaded.Items)
	assert.Empty(t, loaded.Items)
	assert.Nil(t, loaded.SavedItems)
	assert.Nil(t, loaded.AppliedDiscountCode)

	code := "DISCOUNT10"
	loaded.AddItem("p1", 2)
	loaded.AddItem("p2", 1)
	loaded.AppliedDiscountCode = &code
	loaded.SaveSnapshot()
	require.NoError(t, repo.Save(ctx, loaded))
	assert.EqualValues(t, 1, loaded.Version)

	again, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []cart.CartItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}}, again.Items)
	assert.Equal(t, again.Items, again.SavedItems)
	require.NotNil(t, again.AppliedDiscountCode)
	assert.Equal(t, "DISCOUNT10", *again.AppliedDiscountCode)
	assert.EqualValues(t, 1, again.Version)

	// Clearing the discount writes NULL
	again.AppliedDiscountCode = nil
	again.Empty()
	require.NoError(t, repo.Save(ctx, again))

	cleared, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, cleared.AppliedDiscountCode)
	assert.Empty(t, cleared.Items)
	assert.Len(t, cleared.SavedItems, 2)
}

func TestCartRepository_UniquePerUser(t *testing.T) {
	repo := NewCartRepository(InitTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, cart.NewCart("u1")))

	err := repo.Insert(ctx, cart.NewCart("u1"))
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)

	require.NoError(t, repo.Insert(ctx, cart.NewCart("u2")))
}

func TestCartRepository_StaleVersion(t *testing.T) {
	repo := NewCartRepository(InitTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, cart.NewCart("u1")))

	first, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	second, err := repo.Load(ctx, "u1")
	require.NoError(t, err)

	first.AddItem("p1", 1)
	require.NoError(t, repo.Save(ctx, first))

	second.AddItem("p2", 1)
	err = repo.Save(ctx, second)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)

	got, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []cart.CartItem{{ProductID: "p1", Quantity: 1}}, got.Items)
}

func TestMigration_SeedIsIdempotent(t *testing.T) {
	db := InitTestDB(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.SeedInitialData())

	var products, users int64
	require.NoError(t, db.Model(&product.Product{}).Count(&products).Error)
	require.NoError(t, db.Model(&user.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, products)
	assert.EqualValues(t, 1, users)
}
