package repository

import (
	"context"

	"tiendapos/internal/model"
	"tiendapos/internal/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DayTotals aggregates one calendar day's sales by payment method.
// Each component is rounded to 2 decimals independently and Gross is the sum
// of the rounded components (defined behavior, not re-rounding a raw sum).
type DayTotals struct {
	Gross   decimal.Decimal
	Cash    decimal.Decimal
	Card    decimal.Decimal
	Nequi   decimal.Decimal
	Virtual decimal.Decimal
	Count   int
}

// SaleSummary is one row of the recent-sales listing.
type SaleSummary struct {
	ID            int64
	CreatedAt     string
	Total         decimal.Decimal
	ItemCount     int
	PaymentMethod string
}

// TopProduct aggregates all-time quantity and revenue for one product.
type TopProduct struct {
	ProductKey string
	Name       string
	Qty        int
	Total      decimal.Decimal
}

// DaySold is a per-calendar-date revenue total.
type DaySold struct {
	Day   string
	Total decimal.Decimal
}

type SalesRepository interface {
	// CreateSaleTx persists header and lines inside the caller's transaction.
	CreateSaleTx(tx *gorm.DB, s *model.Sale) error
	GetSale(ctx context.Context, id int64) (*model.Sale, error)
	TotalsForDay(ctx context.Context, day string) (DayTotals, error)
	// TotalsForDayTx runs the same aggregation inside the caller's transaction,
	// so a cash close records the totals it actually commits against.
	TotalsForDayTx(tx *gorm.DB, day string) (DayTotals, error)
	ListSummaries(ctx context.Context, limit int) ([]SaleSummary, error)
	TotalSold(ctx context.Context) (decimal.Decimal, error)
	TotalSoldByDay(ctx context.Context, limitDays int) ([]DaySold, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	DB() *gorm.DB
}

type salesRepo struct{ db *gorm.DB }

func NewSalesRepository(db *gorm.DB) SalesRepository { return &salesRepo{db: db} }

func (r *salesRepo) CreateSaleTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *salesRepo) GetSale(ctx context.Context, id int64) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Lines").First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *salesRepo) TotalsForDay(ctx context.Context, day string) (DayTotals, error) {
	return totalsForDay(r.db.WithContext(ctx), day)
}

func (r *salesRepo) TotalsForDayTx(tx *gorm.DB, day string) (DayTotals, error) {
	return totalsForDay(tx, day)
}

func totalsForDay(db *gorm.DB, day string) (DayTotals, error) {
	out := DayTotals{
		Gross: money.Zero(), Cash: money.Zero(), Card: money.Zero(),
		Nequi: money.Zero(), Virtual: money.Zero(),
	}
	if day == "" {
		return out, nil
	}

	type row struct {
		PaymentMethod string
		Total         decimal.Decimal
		N             int
	}
	var rows []row
	err := db.Model(&model.Sale{}).
		Select("payment_method, COALESCE(SUM(total), 0) AS total, COUNT(*) AS n").
		Where("DATE(created_at) = ?", day).
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		return out, err
	}

	for _, rw := range rows {
		t := money.Round(rw.Total)
		switch rw.PaymentMethod {
		case model.PaymentCash:
			out.Cash = t
		case model.PaymentCard:
			out.Card = t
		case model.PaymentNequi:
			out.Nequi = t
		case model.PaymentVirtual:
			out.Virtual = t
		}
		out.Count += rw.N
	}
	out.Gross = money.Round(out.Cash.Add(out.Card).Add(out.Nequi).Add(out.Virtual))
	return out, nil
}

func (r *salesRepo) ListSummaries(ctx context.Context, limit int) ([]SaleSummary, error) {
	type row struct {
		ID            int64
		CreatedAt     string
		Total         decimal.Decimal
		ItemCount     int
		PaymentMethod string
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("sales.id, TO_CHAR(sales.created_at, 'YYYY-MM-DD HH24:MI') AS created_at, sales.total, COALESCE(COUNT(sale_lines.id), 0) AS item_count, sales.payment_method").
		Joins("LEFT JOIN sale_lines ON sale_lines.sale_id = sales.id").
		Group("sales.id").
		Order("sales.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]SaleSummary, 0, len(rows))
	for _, rw := range rows {
		out = append(out, SaleSummary{
			ID:            rw.ID,
			CreatedAt:     rw.CreatedAt,
			Total:         money.Round(rw.Total),
			ItemCount:     rw.ItemCount,
			PaymentMethod: rw.PaymentMethod,
		})
	}
	return out, nil
}

func (r *salesRepo) TotalSold(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COALESCE(SUM(total), 0)").
		Scan(&total).Error
	return money.Round(total), err
}

func (r *salesRepo) TotalSoldByDay(ctx context.Context, limitDays int) ([]DaySold, error) {
	type row struct {
		Day   string
		Total decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(total), 0) AS total").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("day DESC").
		Limit(limitDays).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]DaySold, 0, len(rows))
	for _, rw := range rows {
		out = append(out, DaySold{Day: rw.Day, Total: money.Round(rw.Total)})
	}
	return out, nil
}

func (r *salesRepo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	type row struct {
		ProductKey string
		Name       string
		Qty        int
		Total      decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.SaleLine{}).
		Select("product_key, name, COALESCE(SUM(qty), 0) AS qty, COALESCE(SUM(line_total), 0) AS total").
		Group("product_key, name").
		Order("SUM(line_total) DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]TopProduct, 0, len(rows))
	for _, rw := range rows {
		out = append(out, TopProduct{
			ProductKey: rw.ProductKey,
			Name:       rw.Name,
			Qty:        rw.Qty,
			Total:      money.Round(rw.Total),
		})
	}
	return out, nil
}

func (r *salesRepo) DB() *gorm.DB { return r.db }
