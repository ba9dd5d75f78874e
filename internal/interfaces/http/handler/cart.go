package handler

import (
	"errors"
	"io"
	"strconv"

	cartapp "github.com/astrogoddess/storefront/internal/application/cart"
	"github.com/astrogoddess/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CartHandler exposes the visitor's cart
type CartHandler struct {
	BaseHandler
	service *cartapp.Service
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(service *cartapp.Service) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes mounts the cart endpoints
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/cart")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.GET("/checkout", h.Checkout)
	g.POST("/items", h.AddItem)
	g.DELETE("/items/:index", h.RemoveItem)
	g.PUT("/items/:index/qty", h.SetQty)
	g.POST("/items/:index/increment", h.Increment)
	g.POST("/items/:index/decrement", h.Decrement)
}

// Get returns the current cart
func (h *CartHandler) Get(c *gin.Context) {
	h.Success(c, h.service.Get(c.Request.Context(), middleware.GetSessionID(c)))
}

// AddItem adds an item, merging by id
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartapp.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.AddItem(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem deletes the line at :index
func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.Success(c, h.service.RemoveItem(c.Request.Context(), middleware.GetSessionID(c), lineIndex(c)))
}

// SetQty applies the raw quantity input to the line at :index.
// An empty body counts as a blank input.
func (h *CartHandler) SetQty(c *gin.Context) {
	var req cartapp.SetQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, "Request body must be {\"value\": ...}")
		return
	}
	h.Success(c, h.service.SetQty(c.Request.Context(), middleware.GetSessionID(c), lineIndex(c), req.Raw()))
}

// Increment adds one to the line at :index
func (h *CartHandler) Increment(c *gin.Context) {
	h.Success(c, h.service.Increment(c.Request.Context(), middleware.GetSessionID(c), lineIndex(c)))
}

// Decrement removes one from the line at :index
func (h *CartHandler) Decrement(c *gin.Context) {
	h.Success(c, h.service.Decrement(c.Request.Context(), middleware.GetSessionID(c), lineIndex(c)))
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	h.Success(c, h.service.Clear(c.Request.Context(), middleware.GetSessionID(c)))
}

// Checkout returns the hidden form field values for the booking form
func (h *CartHandler) Checkout(c *gin.Context) {
	h.Success(c, h.service.Checkout(c.Request.Context(), middleware.GetSessionID(c)))
}

// lineIndex reads :index. Anything that is not an integer becomes -1,
// which every cart operation ignores as out of range.
func lineIndex(c *gin.Context) int {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return -1
	}
	return i
}
