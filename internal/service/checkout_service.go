package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"
	"tiendapos/internal/repository"
	"tiendapos/internal/worker"
)

// CheckoutService turns a cart into a committed Sale. The whole operation is
// one transaction: stock checks, stock decrements and the sale insert either
// all land or none do.
type CheckoutService interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type checkoutService struct {
	products   repository.ProductRepository
	sales      repository.SalesRepository
	dispatcher *worker.Dispatcher
}

func NewCheckoutService(
	products repository.ProductRepository,
	sales repository.SalesRepository,
	dispatcher *worker.Dispatcher,
) CheckoutService {
	return &checkoutService{products: products, sales: sales, dispatcher: dispatcher}
}

// Checkout flow:
//  1. Merge duplicate cart keys, drop lines with qty <= 0.
//  2. Resolve payment method (default cash) and validate it.
//  3. In one TX: lock the products (deterministic key order), verify every
//     key exists and every quantity is covered, price the lines, verify the
//     tendered cash covers the total, decrement stock, insert the sale.
//  4. After commit: fire the export hook (best effort).
func (s *checkoutService) Checkout(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	qty := make(map[string]int)
	order := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		key := strings.TrimSpace(l.Key)
		if key == "" || l.Qty <= 0 {
			continue
		}
		if _, seen := qty[key]; !seen {
			order = append(order, key)
		}
		qty[key] += l.Qty
	}
	if len(order) == 0 {
		return nil, newErr(KindValidation, "el carrito está vacío")
	}

	method := model.PaymentCash
	var cashReceived *decimal.Decimal
	if req.Payment != nil {
		if req.Payment.Method != "" {
			method = req.Payment.Method
		}
		if req.Payment.CashReceived != nil {
			r := money.Round(*req.Payment.CashReceived)
			cashReceived = &r
		}
	}
	if !model.ValidPaymentMethod(method) {
		return nil, newErr(KindValidation, "método de pago inválido: %s", method)
	}
	if method != model.PaymentCash {
		cashReceived = nil
	}

	var sale model.Sale
	var changeGiven *decimal.Decimal

	txErr := runTxRetry(ctx, s.products.DB(), func(tx *gorm.DB) error {
		locked, err := s.products.FindByKeysForUpdateTx(tx, order)
		if err != nil {
			return err
		}
		byKey := make(map[string]*model.Product, len(locked))
		for i := range locked {
			byKey[locked[i].Key] = &locked[i]
		}

		var missing []string
		for _, key := range order {
			if _, ok := byKey[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return &Error{
				Kind:    KindNotFound,
				Message: "productos no encontrados: " + strings.Join(missing, ", "),
				Details: MissingProducts{Keys: missing},
			}
		}

		var short []InsufficientItem
		for _, key := range order {
			p := byKey[key]
			if p.Stock < qty[key] {
				short = append(short, InsufficientItem{
					Key:       p.Key,
					Name:      p.Name,
					Available: p.Stock,
					Requested: qty[key],
				})
			}
		}
		if len(short) > 0 {
			return &Error{
				Kind:    KindConflict,
				Message: "stock insuficiente",
				Details: short,
			}
		}

		total := money.Zero()
		lines := make([]model.SaleLine, 0, len(order))
		for _, key := range order {
			p := byKey[key]
			unit := money.Round(p.UnitPrice)
			lineTotal := money.Round(unit.Mul(decimal.NewFromInt(int64(qty[key]))))
			total = total.Add(lineTotal)
			lines = append(lines, model.SaleLine{
				ProductKey:  p.Key,
				Name:        p.Name,
				Description: p.Description,
				Qty:         qty[key],
				UnitPrice:   unit,
				LineTotal:   lineTotal,
			})
		}
		total = money.Round(total)

		if method == model.PaymentCash && cashReceived != nil {
			if cashReceived.LessThan(total) {
				return newErr(KindConflict, "efectivo insuficiente: recibido %s, total %s",
					cashReceived.StringFixed(2), total.StringFixed(2))
			}
			change := money.Round(cashReceived.Sub(total))
			changeGiven = &change
		}

		for _, key := range order {
			p := byKey[key]
			if err := s.products.UpdateStockTx(tx, key, p.Stock-qty[key]); err != nil {
				return err
			}
		}

		sale = model.Sale{
			Total:         total,
			PaymentMethod: method,
			CashReceived:  cashReceived,
			ChangeGiven:   changeGiven,
			Lines:         lines,
		}
		return s.sales.CreateSaleTx(tx, &sale)
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueSaleCommitted(ctx, sale.ID); err != nil {
			log.Warn().Err(err).Int64("sale_id", sale.ID).Msg("no se pudo encolar la exportación")
		}
	}

	return &dto.CheckoutResponse{
		SaleID:        sale.ID,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		CashReceived:  sale.CashReceived,
		ChangeGiven:   sale.ChangeGiven,
	}, nil
}
