package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"
	"tiendapos/internal/repository"
)

func cashFixture() (*fakeCashRepo, *fakeSalesRepo, CashService) {
	cash := newFakeCashRepo()
	sales := newFakeSalesRepo()
	return cash, sales, NewCashService(cash, sales, nil)
}

func setDayTotals(sales *fakeSalesRepo, day string, cashTotal, cardTotal string, count int) {
	c := dec(cashTotal)
	card := dec(cardTotal)
	sales.totals[day] = repository.DayTotals{
		Gross:   money.Round(c.Add(card)),
		Cash:    money.Round(c),
		Card:    money.Round(card),
		Nequi:   money.Zero(),
		Virtual: money.Zero(),
		Count:   count,
	}
}

func TestInvalidDayRejected(t *testing.T) {
	_, _, svc := cashFixture()
	_, err := svc.GetCashPanel(context.Background(), "31-08-2026")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestOpeningDerivationFreshStore(t *testing.T) {
	_, _, svc := cashFixture()

	panel, err := svc.GetCashPanel(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.True(t, panel.OpeningCash.IsZero())
	assert.Equal(t, OpeningZero, panel.OpeningSource)
	assert.True(t, panel.NeedsInitialOpening)
	assert.False(t, panel.IsClosed)
}

func TestOpeningDerivationManualInitial(t *testing.T) {
	_, _, svc := cashFixture()

	_, err := svc.SetOpeningCash(context.Background(), "2026-08-31", dec("100"))
	require.NoError(t, err)

	panel, err := svc.GetCashPanel(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "100.00", panel.OpeningCash.StringFixed(2))
	assert.Equal(t, OpeningFromInitial, panel.OpeningSource)
	assert.False(t, panel.NeedsInitialOpening)
}

func TestOpeningCashRejectsNegative(t *testing.T) {
	_, _, svc := cashFixture()
	_, err := svc.SetOpeningCash(context.Background(), "2026-08-31", dec("-1"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestOpeningCashBlockedOnceAnyCloseExists(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-30", "0", "0", 0)

	_, err := svc.CloseCashDay(context.Background(), "2026-08-30", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	_, err = svc.SetOpeningCash(context.Background(), "2026-08-31", dec("500"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestPrevCloseCarryOverridesManualOpening(t *testing.T) {
	cash, sales, svc := cashFixture()

	// day 1: manual opening 100, cash sales 250, withdrawal 50 → expected 300
	_, err := svc.SetOpeningCash(context.Background(), "2026-08-30", dec("100"))
	require.NoError(t, err)
	setDayTotals(sales, "2026-08-30", "250", "0", 3)
	_, err = svc.AddWithdrawal(context.Background(), "2026-08-30", dec("50"), "cambio")
	require.NoError(t, err)

	closeResp, err := svc.CloseCashDay(context.Background(), "2026-08-30", dto.CloseCashDayRequest{})
	require.NoError(t, err)
	assert.Equal(t, "300.00", closeResp.ExpectedCashEnd.StringFixed(2))
	assert.Equal(t, "300.00", closeResp.CarryToNextDay.StringFixed(2))

	// sneak a stale manual value onto day 2; the carry must overwrite it
	cash.days["2026-08-31"] = &model.CashDay{
		Day: "2026-08-31", OpeningCash: dec("999"), OpeningCashManual: true,
	}

	panel, err := svc.GetCashPanel(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "300.00", panel.OpeningCash.StringFixed(2))
	assert.Equal(t, OpeningFromPrevClose, panel.OpeningSource)

	// and the correction was written through
	d := cash.days["2026-08-31"]
	assert.Equal(t, "300.00", d.OpeningCash.StringFixed(2))
	assert.False(t, d.OpeningCashManual)
}

func TestCloseSeedsNextDayOpening(t *testing.T) {
	cash, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-30", "120", "0", 1)

	_, err := svc.CloseCashDay(context.Background(), "2026-08-30", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	d, ok := cash.days["2026-08-31"]
	require.True(t, ok)
	assert.Equal(t, "120.00", d.OpeningCash.StringFixed(2))
	assert.False(t, d.OpeningCashManual)
}

func TestCloseMismatchRequiresForce(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "250", "100", 4)

	_, err := svc.SetOpeningCash(context.Background(), "2026-08-31", dec("100"))
	require.NoError(t, err)
	_, err = svc.AddWithdrawal(context.Background(), "2026-08-31", dec("50"), "")
	require.NoError(t, err)

	// expected cash end = 100 + 250 - 50 = 300; counted 280 → diff -20
	_, err = svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{
		CashCounted: decPtr("280"),
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
	details, ok := Details[CashMismatch](err)
	require.True(t, ok)
	assert.Equal(t, "300.00", details.ExpectedCashEnd.StringFixed(2))
	assert.Equal(t, "-20.00", details.CashDiff.StringFixed(2))
	assert.True(t, details.NeedsForce)

	// force closes with the counted amount as carry
	resp, err := svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{
		CashCounted: decPtr("280"),
		Force:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "300.00", resp.ExpectedCashEnd.StringFixed(2))
	assert.Equal(t, "280.00", resp.CarryToNextDay.StringFixed(2))
	require.NotNil(t, resp.CashDiff)
	assert.Equal(t, "-20.00", resp.CashDiff.StringFixed(2))
	assert.Empty(t, resp.Message)
}

func TestCloseMatchingCountReturnsMessage(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "200", "0", 2)

	resp, err := svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{
		CashCounted: decPtr("200"),
	})
	require.NoError(t, err)
	assert.Equal(t, closeMatchMessage, resp.Message)
	assert.Equal(t, "200.00", resp.CarryToNextDay.StringFixed(2))
}

func TestCloseSealsTotalsAsOfTransaction(t *testing.T) {
	cash, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "100", "0", 1)

	// A sale lands after the close request is issued but before its
	// transaction reads the totals. The sealed close must include it.
	cash.onCloseForDay = func(day string) {
		setDayTotals(sales, day, "150", "0", 2)
		cash.onCloseForDay = nil
	}

	resp, err := svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{})
	require.NoError(t, err)
	assert.Equal(t, "150.00", resp.ExpectedCashEnd.StringFixed(2))
	require.Len(t, cash.closes, 1)
	assert.Equal(t, "150.00", cash.closes[0].CashTotal.StringFixed(2))
	assert.Equal(t, "150.00", cash.closes[0].GrossTotal.StringFixed(2))
}

func TestCloseTwiceIsConflict(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "0", "0", 0)

	_, err := svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	_, err = svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestWithdrawalValidation(t *testing.T) {
	_, _, svc := cashFixture()

	_, err := svc.AddWithdrawal(context.Background(), "2026-08-31", dec("0"), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.AddWithdrawal(context.Background(), "2026-08-31", dec("-5"), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestWithdrawalRejectedOnClosedDay(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "0", "0", 0)

	_, err := svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	_, err = svc.AddWithdrawal(context.Background(), "2026-08-31", dec("10"), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestDeleteCashMove(t *testing.T) {
	_, sales, svc := cashFixture()

	mv, err := svc.AddWithdrawal(context.Background(), "2026-08-31", dec("30"), "cambio")
	require.NoError(t, err)

	// unknown ID
	err = svc.DeleteCashMove(context.Background(), mv.ID+100)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	// deletable while the day is open
	require.NoError(t, svc.DeleteCashMove(context.Background(), mv.ID))

	// a move on a closed day is frozen
	mv2, err := svc.AddWithdrawal(context.Background(), "2026-08-31", dec("15"), "")
	require.NoError(t, err)
	setDayTotals(sales, "2026-08-31", "0", "0", 0)
	_, err = svc.CloseCashDay(context.Background(), "2026-08-31", dto.CloseCashDayRequest{Force: true})
	require.NoError(t, err)

	err = svc.DeleteCashMove(context.Background(), mv2.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestPanelArithmetic(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-31", "250", "100", 4)

	_, err := svc.SetOpeningCash(context.Background(), "2026-08-31", dec("100"))
	require.NoError(t, err)
	_, err = svc.AddWithdrawal(context.Background(), "2026-08-31", dec("50"), "")
	require.NoError(t, err)

	panel, err := svc.GetCashPanel(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "100.00", panel.OpeningCash.StringFixed(2))
	assert.Equal(t, "250.00", panel.CashTotal.StringFixed(2))
	assert.Equal(t, "100.00", panel.CardTotal.StringFixed(2))
	assert.Equal(t, "350.00", panel.GrossTotal.StringFixed(2))
	assert.Equal(t, "50.00", panel.WithdrawalsTotal.StringFixed(2))
	// only cash affects the drawer expectation
	assert.Equal(t, "300.00", panel.ExpectedCashEnd.StringFixed(2))
	assert.Equal(t, 4, panel.SalesCount)
	require.Len(t, panel.Withdrawals, 1)
}

func TestUseSuggestedOpeningCash(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-30", "80", "0", 1)
	_, err := svc.CloseCashDay(context.Background(), "2026-08-30", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	resp, err := svc.UseSuggestedOpeningCash(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "80.00", resp.OpeningCash.StringFixed(2))
}

func TestUseSuggestedOpeningDiscardsManualValue(t *testing.T) {
	cash, _, svc := cashFixture()

	_, err := svc.SetOpeningCash(context.Background(), "2026-08-31", dec("500"))
	require.NoError(t, err)

	// no close anywhere, so the suggestion is zero and the manual flag clears
	resp, err := svc.UseSuggestedOpeningCash(context.Background(), "2026-08-31")
	require.NoError(t, err)
	assert.True(t, resp.OpeningCash.IsZero())

	d := cash.days["2026-08-31"]
	assert.True(t, d.OpeningCash.IsZero())
	assert.False(t, d.OpeningCashManual)
}

func TestListCashClosesClamp(t *testing.T) {
	_, sales, svc := cashFixture()
	setDayTotals(sales, "2026-08-30", "0", "0", 0)
	_, err := svc.CloseCashDay(context.Background(), "2026-08-30", dto.CloseCashDayRequest{})
	require.NoError(t, err)

	closes, err := svc.ListCashCloses(context.Background(), -5)
	require.NoError(t, err)
	assert.Len(t, closes, 1)

	closes, err = svc.ListCashCloses(context.Background(), 100000)
	require.NoError(t, err)
	assert.Len(t, closes, 1)
}
