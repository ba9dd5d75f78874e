package cart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/astrogoddess/storefront/internal/domain/cart"
)

// AddItemRequest carries the attributes of an "add to cart" control
type AddItemRequest struct {
	ID       string      `json:"id" binding:"max=200"`
	Name     string      `json:"name" binding:"max=200"`
	Category string      `json:"category" binding:"max=200"`
	Price    json.Number `json:"price"`
	Heading  string      `json:"heading" binding:"max=200"`
	Section  string      `json:"section" binding:"max=200"`
}

// Attributes converts the request into domain attributes
func (r AddItemRequest) Attributes() cart.Attributes {
	return cart.Attributes{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Price:    r.Price.String(),
		Heading:  r.Heading,
		Section:  r.Section,
	}
}

// SetQtyRequest carries the raw value of a quantity input.
// Value may be a JSON number or a string such as "3", "" or "abc".
type SetQtyRequest struct {
	Value json.RawMessage `json:"value"`
}

// Raw returns the value as the text a user typed
func (r SetQtyRequest) Raw() string {
	var s string
	if err := json.Unmarshal(r.Value, &s); err == nil {
		return s
	}
	return string(r.Value)
}

// ParseQtyInput converts raw input text to a float the way a number field
// reads it: blank means 1 and anything unparseable is NaN.
func ParseQtyInput(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return 1
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// BookingRequest is the booking form submitted with the staged order
type BookingRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Phone   string `json:"phone" binding:"max=50"`
	Date    string `json:"date" binding:"max=50"`
	Message string `json:"message" binding:"max=5000"`
}

// ContactRequest is the general contact form
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Message string `json:"message" binding:"required,max=5000"`
}

// LineResponse is one cart row
type LineResponse struct {
	Index            int    `json:"index"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Price            string `json:"price"`
	PriceDisplay     string `json:"price_display"`
	Qty              int    `json:"qty"`
	LineTotal        string `json:"line_total"`
	LineTotalDisplay string `json:"line_total_display"`
}

// SummaryResponse holds the hidden form field values and the readable order lines
type SummaryResponse struct {
	OrderItems string   `json:"order_items"`
	OrderTotal string   `json:"order_total"`
	Lines      []string `json:"lines"`
	Empty      bool     `json:"empty"`
}

// CartResponse is the full cart view returned after every operation
type CartResponse struct {
	Count           int             `json:"count"`
	Subtotal        string          `json:"subtotal"`
	SubtotalDisplay string          `json:"subtotal_display"`
	HasItems        bool            `json:"has_items"`
	Items           []LineResponse  `json:"items"`
	Summary         SummaryResponse `json:"summary"`
}

// FeedbackResponse is the message shown after a form submission
type FeedbackResponse struct {
	Message string           `json:"message"`
	Summary *SummaryResponse `json:"summary,omitempty"`
}

// ToCartResponse converts a cart view to its response
func ToCartResponse(view cart.View) *CartResponse {
	items := make([]LineResponse, len(view.Lines))
	for i, line := range view.Lines {
		price := line.Item.PriceMoney()
		items[i] = LineResponse{
			Index:            line.Index,
			ID:               line.Item.ID,
			Name:             line.Item.Name,
			Category:         line.Item.Category,
			Price:            price.Amount().String(),
			PriceDisplay:     price.Display(),
			Qty:              line.Item.Qty,
			LineTotal:        line.LineTotal.Amount().String(),
			LineTotalDisplay: line.LineTotal.Display(),
		}
	}
	return &CartResponse{
		Count:           view.Count,
		Subtotal:        view.Subtotal.Amount().String(),
		SubtotalDisplay: view.Subtotal.Display(),
		HasItems:        view.HasItems,
		Items:           items,
		Summary:         ToSummaryResponse(view.Summary),
	}
}

// ToSummaryResponse converts an order summary to its response
func ToSummaryResponse(s cart.Summary) SummaryResponse {
	return SummaryResponse{
		OrderItems: s.ItemsJSON,
		OrderTotal: s.Total,
		Lines:      s.Lines,
		Empty:      s.Empty,
	}
}
