// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cart-backend/internal/domain/cart"
	"github.com/your-org/cart-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cart-backend/internal/pkg/pdf"
)

// QuoteRenderer turns a priced cart into a PDF document
type QuoteRenderer interface {
	GenerateCartQuote(quote *cart.Quote) (*bytes.Buffer, error)
}

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	renderer    QuoteRenderer
	logger      *logrus.Logger
}

// NewCartHandler creates a new cart handler. A nil renderer disables the PDF quote.
func NewCartHandler(cartService *cart.Service, renderer QuoteRenderer, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		renderer:    renderer,
		logger:      logger,
	}
}

// CreateCart handles POST /cart
func (h *CartHandler) CreateCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	created, err := h.cartService.CreateCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse)
}

// AddItem handles POST /cart/product
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// RemoveItem handles DELETE /cart/product
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.cartService.RemoveItem(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// UpdateItem handles PUT /cart/product
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.cartService.UpdateItemQuantity(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// GetSummary handles GET /cart/summary
func (h *CartHandler) GetSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.cartService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// EmptyCart handles DELETE /cart
func (h *CartHandler) EmptyCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.cartService.EmptyCart(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart emptied successfully",
	})
}

// ApplyDiscount handles POST /cart/discount
func (h *CartHandler) ApplyDiscount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req cart.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.cartService.ApplyDiscount(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveCart handles POST /cart/save
func (h *CartHandler) SaveCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.cartService.SaveCart(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart saved successfully",
	})
}

// RestoreCart handles GET /cart/retrieve
func (h *CartHandler) RestoreCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	restored, err := h.cartService.RestoreCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": restored,
	})
}

// GetQuote handles GET /cart/quote (JSON preview of the PDF quote)
func (h *CartHandler) GetQuote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	quote, err := h.cartService.GetQuote(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetQuotePDF handles GET /cart/quote.pdf
func (h *CartHandler) GetQuotePDF(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if h.renderer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Quote generation is disabled",
		})
		return
	}

	quote, err := h.cartService.GetQuote(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	pdfBuffer, err := h.renderer.GenerateCartQuote(quote)
	if err != nil {
		h.logger.WithError(err).WithField("cart_id", quote.CartID).Error("Failed to generate quote PDF")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate quote",
		})
		return
	}

	// Set headers for PDF download
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", pdf.QuoteNumber(quote)))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))

	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// requireUser returns the authenticated user id, writing 401 when absent
func requireUser(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return "", false
	}
	return userID, true
}
