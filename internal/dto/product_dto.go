package dto

import "github.com/shopspring/decimal"

// ImportedProduct is the record shape import adapters (Excel, Sheets) hand to
// upsertMany after header detection and locale-aware price parsing.
type ImportedProduct struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type UpsertManyRequest struct {
	Products []ImportedProduct `json:"products" validate:"required,min=1,dive"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,min=1"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"       validate:"min=0"`
	Price       decimal.Decimal `json:"price"       validate:"min=0"`
	Category    string          `json:"category"`
}

type SetInfoRequest struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Description string `json:"description"`
}

type SetCategoryRequest struct {
	Category string `json:"category"`
}

type AdjustStockRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Notes string `json:"notes"`
}

type SetStockRequest struct {
	Stock int    `json:"stock" validate:"min=0"`
	Notes string `json:"notes"`
}

type SetPriceRequest struct {
	Price decimal.Decimal `json:"price" validate:"min=0"`
}

type SetImageRequest struct {
	Path string `json:"path" validate:"required"`
}

type DeleteDuplicatesRequest struct {
	KeepFirst bool `json:"keep_first"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	UpdatedAt   string          `json:"updated_at"`
}

type UpsertManyResponse struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

type StockResponse struct {
	Key     string `json:"key"`
	Stock   int    `json:"stock"`
	Applied int    `json:"applied"`
}

type PriceResponse struct {
	Key   string          `json:"key"`
	Price decimal.Decimal `json:"price"`
}

// DuplicateGroup lists the keys of products sharing the same name+description.
type DuplicateGroup struct {
	BaseName string   `json:"base_name"`
	Keys     []string `json:"keys"`
}

type DeleteDuplicatesResponse struct {
	Groups  int `json:"groups"`
	Deleted int `json:"deleted"`
}

type ImageResponse struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}
