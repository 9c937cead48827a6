package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/your-org/cart-backend/internal/config"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
	"github.com/your-org/cart-backend/internal/pkg/auth"
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

	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:        bcrypt.MinCost,
			PasswordMinLength: 8,
		},
	}
}

func TestRegister(t *testing.T) {
	db := InitTestDB(t)
	svc := NewService(db, testConfig(), logger.Discard())
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Username: "test_user", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "test_user", u.Username)
	assert.Empty(t, u.Password)

	var stored User
	require.NoError(t, db.First(&stored, "id = ?", u.ID).Error)
	assert.NotEqual(t, "password", stored.Password)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "test_user", Password: "password"})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(InitTestDB(t), testConfig(), logger.Discard())

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "blank username", req: RegisterRequest{Username: "  ", Password: "password"}},
		{name: "short password", req: RegisterRequest{Username: "bob", Password: "pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tt.req)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
		})
	}
}

func TestLogin(t *testing.T) {
	cfg := testConfig()
	svc := NewService(InitTestDB(t), cfg, logger.Discard())
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "password"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "password"})
	require.NoError(t, err)

	claims, err := auth.NewJWTManager(cfg).ValidateAccessToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)

	_, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong-password"})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "password"})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestGetUser_NotFound(t *testing.T) {
	svc := NewService(InitTestDB(t), testConfig(), logger.Discard())

	_, err := svc.GetUser(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
