package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/core/service"
)

type ItemRequest struct {
	Name         string          `json:"name"`
	WeightGrams  decimal.Decimal `json:"weight_grams"`
	PurityKarat  int             `json:"purity_karat"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Quantity     int             `json:"quantity"`
}

func (r ItemRequest) toNewItem() service.NewItem {
	return service.NewItem{
		Name:         r.Name,
		WeightGrams:  r.WeightGrams,
		PurityKarat:  r.PurityKarat,
		PricePerGram: r.PricePerGram,
		Quantity:     r.Quantity,
	}
}

type AddToCartRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type ItemResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	WeightGrams  string `json:"weight_grams"`
	PurityKarat  int    `json:"purity_karat"`
	PricePerGram string `json:"price_per_gram"`
	UnitPrice    string `json:"unit_price"`
	Quantity     int    `json:"quantity"`
}

func toItemResponse(item domain.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		WeightGrams:  item.WeightGrams.String(),
		PurityKarat:  item.PurityKarat,
		PricePerGram: item.PricePerGram.StringFixed(2),
		UnitPrice:    item.UnitPrice.StringFixed(2),
		Quantity:     item.Quantity,
	}
}

type CartLineResponse struct {
	ItemID      int64  `json:"item_id"`
	Name        string `json:"name"`
	WeightGrams string `json:"weight_grams"`
	PurityKarat int    `json:"purity_karat"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

func toCartLineResponse(l domain.CartLine) CartLineResponse {
	return CartLineResponse{
		ItemID:      l.ItemID,
		Name:        l.Name,
		WeightGrams: l.WeightGrams.String(),
		PurityKarat: l.PurityKarat,
		UnitPrice:   l.UnitPrice.StringFixed(2),
		Quantity:    l.Quantity,
		LineTotal:   l.Total().StringFixed(2),
	}
}

type CartResponse struct {
	Lines     []CartLineResponse `json:"lines"`
	Total     string             `json:"total"`
	ItemCount int                `json:"item_count"`
}

func toCartResponse(cart *domain.Cart) CartResponse {
	lines := cart.Lines()
	resp := CartResponse{
		Lines:     make([]CartLineResponse, len(lines)),
		Total:     cart.Total().StringFixed(2),
		ItemCount: cart.ItemCount(),
	}
	for i, l := range lines {
		resp.Lines[i] = toCartLineResponse(l)
	}
	return resp
}

type QuoteResponse struct {
	Lines    []CartLineResponse `json:"lines"`
	Total    string             `json:"total"`
	Currency string             `json:"currency"`
	Units    int                `json:"units"`
}

type SaleResponse struct {
	ID         int64  `json:"id"`
	CheckoutID string `json:"checkout_id"`
	ItemID     int64  `json:"item_id"`
	ItemName   string `json:"item_name"`
	Quantity   int    `json:"quantity"`
	Amount     string `json:"amount"`
	SaleDate   string `json:"sale_date"`
}

func toSaleResponse(s domain.SaleRecord) SaleResponse {
	return SaleResponse{
		ID:         s.ID,
		CheckoutID: s.CheckoutID.String(),
		ItemID:     s.ItemID,
		ItemName:   s.ItemName,
		Quantity:   s.Quantity,
		Amount:     s.Amount.StringFixed(2),
		SaleDate:   s.SaleDate.Format(time.DateOnly),
	}
}

type ReceiptResponse struct {
	CheckoutID string         `json:"checkout_id"`
	CustomerID int64          `json:"customer_id"`
	State      string         `json:"state"`
	Lines      []SaleResponse `json:"lines"`
	Total      string         `json:"total"`
	Currency   string         `json:"currency"`
	Units      int            `json:"units"`
}

func toReceiptResponse(r *domain.Receipt) ReceiptResponse {
	lines := make([]SaleResponse, len(r.Lines))
	for i, s := range r.Lines {
		lines[i] = toSaleResponse(s)
	}
	return ReceiptResponse{
		CheckoutID: r.CheckoutID.String(),
		CustomerID: r.CustomerID,
		State:      r.State.String(),
		Lines:      lines,
		Total:      r.Total.Amount.StringFixed(2),
		Currency:   r.Total.Currency.String(),
		Units:      r.Units,
	}
}

type DailyReportResponse struct {
	Date     string         `json:"date"`
	Sales    []SaleResponse `json:"sales"`
	Total    string         `json:"total"`
	Currency string         `json:"currency"`
	Units    int            `json:"units"`
}

type ShortageResponse struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type ErrorResponse struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable,omitempty"`
	ItemID    int64              `json:"item_id,omitempty"`
	Shortages []ShortageResponse `json:"shortages,omitempty"`
}
