package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/repository"
)

const (
	summariesDefaultLimit = 30
	summariesMaxLimit     = 500
)

// SalesService is read-only reporting over the immutable sales ledger.
type SalesService interface {
	ListSalesSummary(ctx context.Context, limit int) ([]dto.SaleSummaryResponse, error)
	GetSaleDetails(ctx context.Context, id int64) (*dto.SaleDetailsResponse, error)
	GetSummary(ctx context.Context, recentLimit int) (*dto.SummaryResponse, error)
	TotalSold(ctx context.Context) (decimal.Decimal, error)
	TotalSoldByDay(ctx context.Context, limitDays int) ([]dto.DaySoldResponse, error)
	TopProducts(ctx context.Context, limit int) ([]dto.TopProductResponse, error)
}

type salesService struct {
	sales repository.SalesRepository
}

func NewSalesService(sales repository.SalesRepository) SalesService {
	return &salesService{sales: sales}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func (s *salesService) ListSalesSummary(ctx context.Context, limit int) ([]dto.SaleSummaryResponse, error) {
	limit = clampLimit(limit, summariesDefaultLimit, summariesMaxLimit)
	rows, err := s.sales.ListSummaries(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SaleSummaryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.SaleSummaryResponse{
			ID:            r.ID,
			CreatedAt:     r.CreatedAt,
			Total:         r.Total,
			ItemCount:     r.ItemCount,
			PaymentMethod: r.PaymentMethod,
		})
	}
	return out, nil
}

func (s *salesService) GetSaleDetails(ctx context.Context, id int64) (*dto.SaleDetailsResponse, error) {
	sale, err := s.sales.GetSale(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newErr(KindNotFound, "venta no encontrada: %d", id)
		}
		return nil, err
	}
	lines := make([]dto.SaleLineResponse, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		lines = append(lines, dto.SaleLineResponse{
			ProductKey:  l.ProductKey,
			Name:        l.Name,
			Description: l.Description,
			Qty:         l.Qty,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return &dto.SaleDetailsResponse{
		ID:            sale.ID,
		CreatedAt:     sale.CreatedAt.Format("2006-01-02 15:04"),
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		CashReceived:  sale.CashReceived,
		ChangeGiven:   sale.ChangeGiven,
		Lines:         lines,
	}, nil
}

// GetSummary backs the dashboard header: all-time revenue plus the most
// recent sales in one call.
func (s *salesService) GetSummary(ctx context.Context, recentLimit int) (*dto.SummaryResponse, error) {
	total, err := s.sales.TotalSold(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.ListSalesSummary(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{TotalSold: total, RecentSales: recent}, nil
}

func (s *salesService) TotalSold(ctx context.Context) (decimal.Decimal, error) {
	return s.sales.TotalSold(ctx)
}

func (s *salesService) TotalSoldByDay(ctx context.Context, limitDays int) ([]dto.DaySoldResponse, error) {
	limitDays = clampLimit(limitDays, summariesDefaultLimit, summariesMaxLimit)
	rows, err := s.sales.TotalSoldByDay(ctx, limitDays)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DaySoldResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.DaySoldResponse{Day: r.Day, Total: r.Total})
	}
	return out, nil
}

func (s *salesService) TopProducts(ctx context.Context, limit int) ([]dto.TopProductResponse, error) {
	limit = clampLimit(limit, summariesDefaultLimit, summariesMaxLimit)
	rows, err := s.sales.TopProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TopProductResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TopProductResponse{
			ProductKey: r.ProductKey,
			Name:       r.Name,
			Qty:        r.Qty,
			Total:      r.Total,
		})
	}
	return out, nil
}
