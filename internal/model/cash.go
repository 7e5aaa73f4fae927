package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashDay tracks the drawer's opening balance for one calendar date
// (ISO YYYY-MM-DD). Created lazily on first touch, upserted, one row per day.
// OpeningCashManual marks a one-time user-entered opening; once any CashClose
// exists the opening is always derived from the previous close and the flag
// is forced back to false.
type CashDay struct {
	Day               string          `gorm:"type:varchar(10);primaryKey"`
	OpeningCash       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	OpeningCashManual bool            `gorm:"not null;default:false"`
	UpdatedAt         time.Time
}

func (CashDay) TableName() string { return "cash_days" }

// Cash move kinds. Withdrawal is the only kind today.
const CashMoveWithdrawal = "withdrawal"

// CashMove is a drawer movement tied to a day. Deletable only while the day
// is still open.
type CashMove struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Day       string          `gorm:"type:varchar(10);index;not null"`
	Kind      string          `gorm:"type:varchar(20);not null;default:'withdrawal'"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Notes     string          `gorm:"type:text"`
	CreatedAt time.Time
}

func (CashMove) TableName() string { return "cash_moves" }

// CashClose is the immutable record of a finished day. The unique index on
// Day enforces close-at-most-once: a duplicate insert is the AlreadyClosed
// condition, regardless of interleaving.
type CashClose struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	Day       string `gorm:"type:varchar(10);uniqueIndex;not null"`

	OpeningCash      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	WithdrawalsTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	GrossTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CashTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CardTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NequiTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VirtualTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	ExpectedCashEnd decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CarryToNextDay  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	CashCounted *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashDiff    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes       string           `gorm:"type:text"`
}

func (CashClose) TableName() string { return "cash_closes" }
