package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/domain/product"
	"github.com/your-org/cart-backend/internal/pkg/apperrors"
	"github.com/your-org/cart-backend/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProducts map[string]*product.Product

func (s stubProducts) FindByIDs(_ context.Context, ids []string) (map[string]*product.Product, error) {
	out := make(map[string]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeRenderer struct {
	err    error
	quotes []*cart.Quote
}

func (f *fakeRenderer) GenerateCartQuote(quote *cart.Quote) (*bytes.Buffer, error) {
	f.quotes = append(f.quotes, quote)
	if f.err != nil {
		return nil, f.err
	}
	return bytes.NewBufferString("%PDF-1.4 fake"), nil
}

func newCartRouter(t *testing.T, renderer QuoteRenderer) (*gin.Engine, *cart.Service) {
	t.Helper()

	products := stubProducts{
		"p1": {ID: "p1", Name: "Keyboard", Price: decimal.NewFromInt(100), Stock: 5},
	}
	svc := cart.NewService(
		cart.NewMemoryRepository(),
		products,
		nil,
		cart.Config{Discounts: cart.NewDiscountTable(map[string]float64{"DISCOUNT10": 0.10})},
		nil,
		logger.Discard(),
	)

	h := NewCartHandler(svc, renderer, logger.Discard())

	r := gin.New()
	authed := r.Group("/cart", func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set("user_id", user)
		}
		c.Next()
	})
	authed.POST("", h.CreateCart)
	authed.POST("/product", h.AddItem)
	authed.GET("/summary", h.GetSummary)
	authed.GET("/quote", h.GetQuote)
	authed.GET("/quote.pdf", h.GetQuotePDF)

	return r, svc
}

func request(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: apperrors.Validation("bad"), status: http.StatusBadRequest},
		{err: apperrors.NotFound("cart"), status: http.StatusNotFound},
		{err: apperrors.Conflict("busy"), status: http.StatusConflict},
		{err: apperrors.Unauthorized("who"), status: http.StatusUnauthorized},
		{err: apperrors.Store("load cart", errors.New("connection reset")), status: http.StatusInternalServerError},
		{err: errors.New("unexpected"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesStoreDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, apperrors.Store("load cart", errors.New("dial tcp 10.0.0.1:5432")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
	require.Len(t, c.Errors, 1)
}

func TestCartHandler_RequiresUser(t *testing.T) {
	r, _ := newCartRouter(t, nil)

	w := request(r, http.MethodPost, "/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartHandler_AddItemValidation(t *testing.T) {
	r, _ := newCartRouter(t, nil)
	require.Equal(t, http.StatusCreated, request(r, http.MethodPost, "/cart", "u1", "").Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "missing product", body: `{"quantity":1}`, status: http.StatusBadRequest},
		{name: "zero quantity", body: `{"productId":"p1","quantity":0}`, status: http.StatusBadRequest},
		{name: "negative quantity", body: `{"productId":"p1","quantity":-3}`, status: http.StatusBadRequest},
		{name: "malformed json", body: `{"productId":`, status: http.StatusBadRequest},
		{name: "ok", body: `{"productId":"p1","quantity":2}`, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, http.MethodPost, "/cart/product", "u1", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCartHandler_SummaryWithoutCart(t *testing.T) {
	r, _ := newCartRouter(t, nil)

	w := request(r, http.MethodGet, "/cart/summary", "nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartHandler_Quote(t *testing.T) {
	renderer := &fakeRenderer{}
	r, svc := newCartRouter(t, renderer)
	ctx := context.Background()

	_, err := svc.CreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.ApplyDiscount(ctx, "u1", "DISCOUNT10")
	require.NoError(t, err)

	w := request(r, http.MethodGet, "/cart/quote", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var quote map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
	assert.Equal(t, 200.0, quote["subtotal"])
	assert.Equal(t, 180.0, quote["total"])
	assert.Equal(t, "DISCOUNT10", quote["discountCode"])

	w = request(r, http.MethodGet, "/cart/quote.pdf", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=Q-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	require.Len(t, renderer.quotes, 1)
	assert.True(t, renderer.quotes[0].Total.Equal(decimal.NewFromInt(180)))
}

func TestCartHandler_QuotePDFFailures(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		r, svc := newCartRouter(t, nil)
		_, err := svc.CreateCart(context.Background(), "u1")
		require.NoError(t, err)

		w := request(r, http.MethodGet, "/cart/quote.pdf", "u1", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("renderer error", func(t *testing.T) {
		r, svc := newCartRouter(t, &fakeRenderer{err: errors.New("wkhtmltopdf missing")})
		_, err := svc.CreateCart(context.Background(), "u1")
		require.NoError(t, err)

		w := request(r, http.MethodGet, "/cart/quote.pdf", "u1", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "wkhtmltopdf")
	})
}
