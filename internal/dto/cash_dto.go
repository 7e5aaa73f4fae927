package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SetOpeningCashRequest struct {
	OpeningCash decimal.Decimal `json:"opening_cash" validate:"min=0"`
}

type AddWithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  string          `json:"notes"`
}

type CloseCashDayRequest struct {
	CashCounted    *decimal.Decimal `json:"cash_counted"`
	CarryToNextDay *decimal.Decimal `json:"carry_to_next_day"`
	Notes          string           `json:"notes"`
	Force          bool             `json:"force"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CashMoveResponse struct {
	ID        int64           `json:"id"`
	CreatedAt string          `json:"created_at"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
}

// LastCloseInfo is the condensed view of an existing close shown in the panel.
type LastCloseInfo struct {
	CreatedAt      string           `json:"created_at"`
	CarryToNextDay decimal.Decimal  `json:"carry_to_next_day"`
	CashCounted    *decimal.Decimal `json:"cash_counted,omitempty"`
	CashDiff       *decimal.Decimal `json:"cash_diff,omitempty"`
}

// CashPanelResponse is the live drawer view for one day: opening balance with
// its source, today's totals by method, withdrawals, and the expected end.
type CashPanelResponse struct {
	Day                 string             `json:"day"`
	OpeningCash         decimal.Decimal    `json:"opening_cash"`
	OpeningSource       string             `json:"opening_source"` // prev_close | initial | zero
	NeedsInitialOpening bool               `json:"needs_initial_opening"`
	IsClosed            bool               `json:"is_closed"`
	WithdrawalsTotal    decimal.Decimal    `json:"withdrawals_total"`
	Withdrawals         []CashMoveResponse `json:"withdrawals"`
	GrossTotal          decimal.Decimal    `json:"gross_total"`
	CashTotal           decimal.Decimal    `json:"cash_total"`
	CardTotal           decimal.Decimal    `json:"card_total"`
	NequiTotal          decimal.Decimal    `json:"nequi_total"`
	VirtualTotal        decimal.Decimal    `json:"virtual_total"`
	SalesCount          int                `json:"sales_count"`
	ExpectedCashEnd     decimal.Decimal    `json:"expected_cash_end"`
	LastClose           *LastCloseInfo     `json:"last_close,omitempty"`
}

type OpeningCashResponse struct {
	Day         string          `json:"day"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type CloseCashDayResponse struct {
	ID              int64            `json:"id"`
	CreatedAt       string           `json:"created_at"`
	Day             string           `json:"day"`
	ExpectedCashEnd decimal.Decimal  `json:"expected_cash_end"`
	CarryToNextDay  decimal.Decimal  `json:"carry_to_next_day"`
	CashDiff        *decimal.Decimal `json:"cash_diff,omitempty"`
	Message         string           `json:"message,omitempty"`
}

type CashCloseResponse struct {
	ID               int64            `json:"id"`
	CreatedAt        string           `json:"created_at"`
	Day              string           `json:"day"`
	OpeningCash      decimal.Decimal  `json:"opening_cash"`
	WithdrawalsTotal decimal.Decimal  `json:"withdrawals_total"`
	GrossTotal       decimal.Decimal  `json:"gross_total"`
	CashTotal        decimal.Decimal  `json:"cash_total"`
	CardTotal        decimal.Decimal  `json:"card_total"`
	NequiTotal       decimal.Decimal  `json:"nequi_total"`
	VirtualTotal     decimal.Decimal  `json:"virtual_total"`
	ExpectedCashEnd  decimal.Decimal  `json:"expected_cash_end"`
	CarryToNextDay   decimal.Decimal  `json:"carry_to_next_day"`
	CashCounted      *decimal.Decimal `json:"cash_counted,omitempty"`
	CashDiff         *decimal.Decimal `json:"cash_diff,omitempty"`
}
