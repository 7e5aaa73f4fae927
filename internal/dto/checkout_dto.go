package dto

import "github.com/shopspring/decimal"

// CartLine is one requested item; quantities <= 0 are dropped at the edge.
type CartLine struct {
	Key string `json:"key" validate:"required"`
	Qty int    `json:"qty"`
}

type PaymentInfo struct {
	Method       string           `json:"method"        validate:"omitempty,oneof=cash card nequi virtual"`
	CashReceived *decimal.Decimal `json:"cash_received"`
}

type CheckoutRequest struct {
	Lines   []CartLine   `json:"lines"   validate:"required,min=1,dive"`
	Payment *PaymentInfo `json:"payment"`
}

type CheckoutResponse struct {
	SaleID        int64            `json:"sale_id"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"payment_method"`
	CashReceived  *decimal.Decimal `json:"cash_received,omitempty"`
	ChangeGiven   *decimal.Decimal `json:"change_given,omitempty"`
}
