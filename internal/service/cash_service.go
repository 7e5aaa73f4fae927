package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"
	"tiendapos/internal/repository"
	"tiendapos/internal/worker"
)

const (
	withdrawalsPanelLimit = 50
	closesDefaultLimit    = 30
	closesMaxLimit        = 200

	closeMatchMessage = "Todo cuadra. Mucha chamba por hoy, hora de dormir."
)

// Opening cash sources reported in the panel.
const (
	OpeningFromPrevClose = "prev_close"
	OpeningFromInitial   = "initial"
	OpeningZero          = "zero"
)

// CashService owns the daily drawer lifecycle: opening balance, withdrawals,
// the live panel and the once-per-day close.
type CashService interface {
	GetCashPanel(ctx context.Context, day string) (*dto.CashPanelResponse, error)
	SetOpeningCash(ctx context.Context, day string, amount decimal.Decimal) (*dto.OpeningCashResponse, error)
	UseSuggestedOpeningCash(ctx context.Context, day string) (*dto.OpeningCashResponse, error)
	AddWithdrawal(ctx context.Context, day string, amount decimal.Decimal, notes string) (*dto.CashMoveResponse, error)
	DeleteCashMove(ctx context.Context, id int64) error
	CloseCashDay(ctx context.Context, day string, req dto.CloseCashDayRequest) (*dto.CloseCashDayResponse, error)
	ListCashCloses(ctx context.Context, limit int) ([]dto.CashCloseResponse, error)
}

type cashService struct {
	cash       repository.CashRepository
	sales      repository.SalesRepository
	dispatcher *worker.Dispatcher
}

func NewCashService(
	cash repository.CashRepository,
	sales repository.SalesRepository,
	dispatcher *worker.Dispatcher,
) CashService {
	return &cashService{cash: cash, sales: sales, dispatcher: dispatcher}
}

const dayLayout = "2006-01-02"

// Today returns the current date in the store's local timezone, in the
// ISO format the cash tables key on.
func Today() string { return time.Now().Format(dayLayout) }

func validDay(day string) error {
	if _, err := time.Parse(dayLayout, day); err != nil {
		return newErr(KindValidation, "fecha inválida: %q (se espera YYYY-MM-DD)", day)
	}
	return nil
}

func nextDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(dayLayout)
}

// deriveOpening resolves the day's opening balance, in strict priority order:
//
//  1. A close exists for any earlier day: its carry wins, always. Any manual
//     value stored on the row is overwritten and the manual flag cleared, so
//     a stale manual entry cannot shadow the real carry.
//  2. No earlier close, but the user entered an initial opening: that value.
//  3. Nothing at all: zero. needsInitial is only true when no close exists
//     anywhere, i.e. the store never finished a day yet.
func (s *cashService) deriveOpening(tx *gorm.DB, day string) (decimal.Decimal, string, bool, error) {
	d, err := s.cash.EnsureDayTx(tx, day)
	if err != nil {
		return money.Zero(), "", false, err
	}

	prev, err := s.cash.PrevCloseBeforeTx(tx, day)
	if err != nil {
		return money.Zero(), "", false, err
	}
	if prev != nil {
		opening := money.Round(prev.CarryToNextDay)
		if !d.OpeningCash.Equal(opening) || d.OpeningCashManual {
			d.OpeningCash = opening
			d.OpeningCashManual = false
			if err := s.cash.SaveDayTx(tx, d); err != nil {
				return money.Zero(), "", false, err
			}
		}
		return opening, OpeningFromPrevClose, false, nil
	}

	if d.OpeningCashManual {
		return money.Round(d.OpeningCash), OpeningFromInitial, false, nil
	}

	anyClose, err := s.cash.AnyCloseTx(tx)
	if err != nil {
		return money.Zero(), "", false, err
	}
	return money.Zero(), OpeningZero, !anyClose, nil
}

func (s *cashService) GetCashPanel(ctx context.Context, day string) (*dto.CashPanelResponse, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}

	totals, err := s.sales.TotalsForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	var resp dto.CashPanelResponse
	txErr := runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		opening, source, needsInitial, err := s.deriveOpening(tx, day)
		if err != nil {
			return err
		}

		moves, err := s.cash.ListWithdrawalsTx(tx, day, withdrawalsPanelLimit)
		if err != nil {
			return err
		}
		wSum, err := s.cash.SumWithdrawalsTx(tx, day)
		if err != nil {
			return err
		}
		wSum = money.Round(wSum)

		closed, err := s.cash.CloseForDayTx(tx, day)
		if err != nil {
			return err
		}

		withdrawals := make([]dto.CashMoveResponse, 0, len(moves))
		for _, m := range moves {
			withdrawals = append(withdrawals, moveToResponse(&m))
		}

		resp = dto.CashPanelResponse{
			Day:                 day,
			OpeningCash:         opening,
			OpeningSource:       source,
			NeedsInitialOpening: needsInitial,
			IsClosed:            closed != nil,
			WithdrawalsTotal:    wSum,
			Withdrawals:         withdrawals,
			GrossTotal:          totals.Gross,
			CashTotal:           totals.Cash,
			CardTotal:           totals.Card,
			NequiTotal:          totals.Nequi,
			VirtualTotal:        totals.Virtual,
			SalesCount:          totals.Count,
			ExpectedCashEnd:     money.Round(opening.Add(totals.Cash).Sub(wSum)),
		}
		if closed != nil {
			resp.LastClose = &dto.LastCloseInfo{
				CreatedAt:      closed.CreatedAt.Format("2006-01-02 15:04"),
				CarryToNextDay: closed.CarryToNextDay,
				CashCounted:    closed.CashCounted,
				CashDiff:       closed.CashDiff,
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &resp, nil
}

// SetOpeningCash records a one-time initial opening. It only works while no
// close exists anywhere: once a day has been closed, openings always come
// from the previous close's carry.
func (s *cashService) SetOpeningCash(ctx context.Context, day string, amount decimal.Decimal) (*dto.OpeningCashResponse, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, newErr(KindValidation, "la apertura no puede ser negativa")
	}

	opening := money.Round(amount)
	txErr := runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		anyClose, err := s.cash.AnyCloseTx(tx)
		if err != nil {
			return err
		}
		if anyClose {
			return newErr(KindConflict, "ya hay cierres registrados: la apertura se hereda del cierre anterior")
		}
		d, err := s.cash.EnsureDayTx(tx, day)
		if err != nil {
			return err
		}
		d.OpeningCash = opening
		d.OpeningCashManual = true
		return s.cash.SaveDayTx(tx, d)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.OpeningCashResponse{Day: day, OpeningCash: opening}, nil
}

// UseSuggestedOpeningCash discards any manual opening for the day and
// persists whatever the derivation resolves, then reports the result.
func (s *cashService) UseSuggestedOpeningCash(ctx context.Context, day string) (*dto.OpeningCashResponse, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	var opening decimal.Decimal
	txErr := runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		d, err := s.cash.EnsureDayTx(tx, day)
		if err != nil {
			return err
		}
		if d.OpeningCashManual || !d.OpeningCash.IsZero() {
			d.OpeningCash = money.Zero()
			d.OpeningCashManual = false
			if err := s.cash.SaveDayTx(tx, d); err != nil {
				return err
			}
		}
		opening, _, _, err = s.deriveOpening(tx, day)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.OpeningCashResponse{Day: day, OpeningCash: opening}, nil
}

func (s *cashService) AddWithdrawal(ctx context.Context, day string, amount decimal.Decimal, notes string) (*dto.CashMoveResponse, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, newErr(KindValidation, "el monto del retiro debe ser mayor que cero")
	}

	move := model.CashMove{
		Day:    day,
		Kind:   model.CashMoveWithdrawal,
		Amount: money.Round(amount),
		Notes:  notes,
	}
	txErr := runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		closed, err := s.cash.CloseForDayTx(tx, day)
		if err != nil {
			return err
		}
		if closed != nil {
			return newErr(KindConflict, "el día %s ya está cerrado", day)
		}
		if _, err := s.cash.EnsureDayTx(tx, day); err != nil {
			return err
		}
		return s.cash.CreateMoveTx(tx, &move)
	})
	if txErr != nil {
		return nil, txErr
	}
	resp := moveToResponse(&move)
	return &resp, nil
}

// DeleteCashMove removes a drawer movement. Movements belonging to a closed
// day are frozen history and cannot be deleted.
func (s *cashService) DeleteCashMove(ctx context.Context, id int64) error {
	return runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		move, err := s.cash.GetMoveTx(tx, id)
		if err != nil {
			return err
		}
		if move == nil {
			return newErr(KindNotFound, "movimiento no encontrado: %d", id)
		}
		closed, err := s.cash.CloseForDayTx(tx, move.Day)
		if err != nil {
			return err
		}
		if closed != nil {
			return newErr(KindConflict, "el día %s ya está cerrado: sus movimientos no se pueden borrar", move.Day)
		}
		return s.cash.DeleteMoveTx(tx, id)
	})
}

// CloseCashDay seals the day. When a counted amount is given and it does not
// match the expectation, the close is refused with the expected value and the
// difference so the operator can recount or confirm with force. The carry for
// the next day is the counted amount when present, otherwise the expectation.
func (s *cashService) CloseCashDay(ctx context.Context, day string, req dto.CloseCashDayRequest) (*dto.CloseCashDayResponse, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}

	var c model.CashClose
	txErr := runTxRetry(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		existing, err := s.cash.CloseForDayTx(tx, day)
		if err != nil {
			return err
		}
		if existing != nil {
			return newErr(KindConflict, "el día %s ya fue cerrado", day)
		}

		// Totals are read inside the transaction so the sealed close matches
		// exactly what was sold up to the commit, even under retries.
		totals, err := s.sales.TotalsForDayTx(tx, day)
		if err != nil {
			return err
		}

		opening, _, _, err := s.deriveOpening(tx, day)
		if err != nil {
			return err
		}
		wSum, err := s.cash.SumWithdrawalsTx(tx, day)
		if err != nil {
			return err
		}
		wSum = money.Round(wSum)

		expected := money.Round(opening.Add(totals.Cash).Sub(wSum))

		var counted, diff *decimal.Decimal
		if req.CashCounted != nil {
			cv := money.Round(*req.CashCounted)
			dv := money.Round(cv.Sub(expected))
			counted, diff = &cv, &dv
			if !dv.IsZero() && !req.Force {
				return &Error{
					Kind:    KindConflict,
					Message: "el efectivo contado no cuadra con lo esperado",
					Details: CashMismatch{ExpectedCashEnd: expected, CashDiff: dv, NeedsForce: true},
				}
			}
		}

		carry := expected
		if counted != nil {
			carry = *counted
		}

		c = model.CashClose{
			Day:              day,
			OpeningCash:      opening,
			WithdrawalsTotal: wSum,
			GrossTotal:       totals.Gross,
			CashTotal:        totals.Cash,
			CardTotal:        totals.Card,
			NequiTotal:       totals.Nequi,
			VirtualTotal:     totals.Virtual,
			ExpectedCashEnd:  expected,
			CarryToNextDay:   carry,
			CashCounted:      counted,
			CashDiff:         diff,
			Notes:            req.Notes,
		}
		if err := s.cash.CreateCloseTx(tx, &c); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newErr(KindConflict, "el día %s ya fue cerrado", day)
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Pre-seed the next day's opening so the panel shows the carry right away.
	// Best effort: the close already committed, a failure here is only logged.
	s.seedNextDay(ctx, day, c.CarryToNextDay)

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueDayClosed(ctx, day); err != nil {
			log.Warn().Err(err).Str("day", day).Msg("no se pudo encolar la exportación del cierre")
		}
	}

	resp := dto.CloseCashDayResponse{
		ID:              c.ID,
		CreatedAt:       c.CreatedAt.Format("2006-01-02 15:04"),
		Day:             c.Day,
		ExpectedCashEnd: c.ExpectedCashEnd,
		CarryToNextDay:  c.CarryToNextDay,
		CashDiff:        c.CashDiff,
	}
	if c.CashCounted != nil && c.CashDiff != nil && c.CashDiff.IsZero() {
		resp.Message = closeMatchMessage
	}
	return &resp, nil
}

func (s *cashService) seedNextDay(ctx context.Context, day string, carry decimal.Decimal) {
	next := nextDay(day)
	if next == "" {
		return
	}
	err := runTx(ctx, s.cash.DB(), func(tx *gorm.DB) error {
		d, err := s.cash.EnsureDayTx(tx, next)
		if err != nil {
			return err
		}
		d.OpeningCash = money.Round(carry)
		d.OpeningCashManual = false
		return s.cash.SaveDayTx(tx, d)
	})
	if err != nil {
		log.Warn().Err(err).Str("day", next).Msg("no se pudo sembrar la apertura del día siguiente")
	}
}

func (s *cashService) ListCashCloses(ctx context.Context, limit int) ([]dto.CashCloseResponse, error) {
	if limit <= 0 {
		limit = closesDefaultLimit
	}
	if limit > closesMaxLimit {
		limit = closesMaxLimit
	}
	closes, err := s.cash.ListCloses(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CashCloseResponse, 0, len(closes))
	for i := range closes {
		out = append(out, closeToResponse(&closes[i]))
	}
	return out, nil
}

func moveToResponse(m *model.CashMove) dto.CashMoveResponse {
	return dto.CashMoveResponse{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.Format("2006-01-02 15:04"),
		Amount:    m.Amount,
		Notes:     m.Notes,
	}
}

func closeToResponse(c *model.CashClose) dto.CashCloseResponse {
	return dto.CashCloseResponse{
		ID:               c.ID,
		CreatedAt:        c.CreatedAt.Format("2006-01-02 15:04"),
		Day:              c.Day,
		OpeningCash:      c.OpeningCash,
		WithdrawalsTotal: c.WithdrawalsTotal,
		GrossTotal:       c.GrossTotal,
		CashTotal:        c.CashTotal,
		CardTotal:        c.CardTotal,
		NequiTotal:       c.NequiTotal,
		VirtualTotal:     c.VirtualTotal,
		ExpectedCashEnd:  c.ExpectedCashEnd,
		CarryToNextDay:   c.CarryToNextDay,
		CashCounted:      c.CashCounted,
		CashDiff:         c.CashDiff,
	}
}
