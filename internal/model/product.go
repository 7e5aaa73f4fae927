package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. Key is the stable business identifier derived
// from name+description at creation time; bulk imports upsert on it.
// Category is set manually from the UI and is never touched by imports.
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Key         string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name        string          `gorm:"type:varchar(255);index;not null"`
	Description string          `gorm:"type:text;not null;default:''"`
	Stock       int             `gorm:"not null;default:0"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Category    string          `gorm:"type:varchar(80);not null;default:''"`
	UpdatedAt   time.Time

	Image *ProductImage `gorm:"foreignKey:ProductKey;references:Key;constraint:OnDelete:CASCADE"`
}

// ProductImage holds the filesystem path of a product photo, one per product.
// Deleted with its product (cascade on key).
type ProductImage struct {
	ProductKey string `gorm:"type:varchar(255);primaryKey"`
	Path       string `gorm:"type:text;not null"`
}

const (
	StockMoveRestock = "restock"
	StockMoveAdjust  = "adjust"
)

// StockMove is the append-only audit log of stock changes.
// Kind: "restock" | "adjust". Sale-driven decrements are not logged here —
// the Sale row itself is the record (see CheckoutService).
// Delta is the actually applied change: when a negative adjustment clamps at
// zero, the recorded delta differs from the requested one.
type StockMove struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	ProductKey string `gorm:"type:varchar(255);index;not null"`
	Kind       string `gorm:"type:varchar(20);not null"`
	Delta      int    `gorm:"not null"`
	StockAfter int    `gorm:"not null"`
	Notes      string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (StockMove) TableName() string { return "stock_moves" }
