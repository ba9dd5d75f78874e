package handler

import (
	cartapp "github.com/astrogoddess/storefront/internal/application/cart"
	"github.com/astrogoddess/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BookingHandler accepts the booking and contact forms
type BookingHandler struct {
	BaseHandler
	service *cartapp.Service
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(service *cartapp.Service) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes mounts the form endpoints
func (h *BookingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/booking", h.SubmitBooking)
	rg.POST("/contact", h.SubmitContact)
}

// SubmitBooking captures the booking with the staged order and clears the cart
func (h *BookingHandler) SubmitBooking(c *gin.Context) {
	var req cartapp.BookingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.service.SubmitBooking(c.Request.Context(), middleware.GetSessionID(c), req))
}

// SubmitContact acknowledges a contact message
func (h *BookingHandler) SubmitContact(c *gin.Context) {
	var req cartapp.ContactRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.service.SubmitContact(c.Request.Context(), req))
}
