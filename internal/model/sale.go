package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout.
const (
	PaymentCash    = "cash"
	PaymentCard    = "card"
	PaymentNequi   = "nequi"
	PaymentVirtual = "virtual"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentNequi, PaymentVirtual:
		return true
	}
	return false
}

// Sale is an immutable completed checkout. CashReceived/ChangeGiven are only
// set for cash payments where the operator entered the received amount.
type Sale struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	CreatedAt     time.Time       `gorm:"index"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'cash'"`
	CashReceived  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ChangeGiven   *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Lines []SaleLine `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleLine is a frozen snapshot of the product at sale time. Later price or
// description changes must not alter historical lines.
type SaleLine struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	SaleID     int64           `gorm:"index;not null"`
	ProductKey string          `gorm:"type:varchar(255);index;not null"`
	Name       string          `gorm:"type:varchar(255);not null"`
	Description string         `gorm:"type:text"`
	Qty        int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
