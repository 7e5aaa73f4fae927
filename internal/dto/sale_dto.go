package dto

import "github.com/shopspring/decimal"

type SaleSummaryResponse struct {
	ID            int64           `json:"id"`
	CreatedAt     string          `json:"created_at"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	PaymentMethod string          `json:"payment_method"`
}

type SaleLineResponse struct {
	ProductKey  string          `json:"product_key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type SaleDetailsResponse struct {
	ID            int64              `json:"id"`
	CreatedAt     string             `json:"created_at"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	CashReceived  *decimal.Decimal   `json:"cash_received,omitempty"`
	ChangeGiven   *decimal.Decimal   `json:"change_given,omitempty"`
	Lines         []SaleLineResponse `json:"lines"`
}

// SummaryResponse backs the dashboard: all-time total plus recent sales.
type SummaryResponse struct {
	TotalSold  decimal.Decimal       `json:"total_sold"`
	RecentSales []SaleSummaryResponse `json:"recent_sales"`
}

type DaySoldResponse struct {
	Day   string          `json:"day"`
	Total decimal.Decimal `json:"total"`
}

type TopProductResponse struct {
	ProductKey string          `json:"product_key"`
	Name       string          `json:"name"`
	Qty        int             `json:"qty"`
	Total      decimal.Decimal `json:"total"`
}
