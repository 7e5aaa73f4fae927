package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"
	"tiendapos/internal/repository"
)

// In-memory fakes for the repository interfaces. DB() returns nil so runTx
// calls the closure directly, without a real transaction.

// ─── fakeProductRepo ─────────────────────────────────────────────────────────

type fakeProductRepo struct {
	products map[string]*model.Product
	images   map[string]string
	moves    []model.StockMove
	nextID   int64

	// moveErr, when set, makes CreateStockMoveTx fail.
	moveErr error
	// conflictNext forces the next N Create calls to report a duplicate key
	// while inserting the row, as if a concurrent writer claimed it first.
	conflictNext int
}

var _ repository.ProductRepository = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: make(map[string]*model.Product),
		images:   make(map[string]string),
	}
}

func (f *fakeProductRepo) add(p model.Product) {
	f.nextID++
	p.ID = f.nextID
	f.products[p.Key] = &p
}

func (f *fakeProductRepo) UpsertMany(_ context.Context, rows []dto.ImportedProduct) (int, error) {
	dedup := make(map[string]dto.ImportedProduct, len(rows))
	order := make([]string, 0, len(rows))
	for _, p := range rows {
		if _, seen := dedup[p.Key]; !seen {
			order = append(order, p.Key)
		}
		dedup[p.Key] = p
	}
	for _, k := range order {
		in := dedup[k]
		if existing, ok := f.products[k]; ok {
			existing.Name = in.Name
			existing.Description = in.Description
			existing.Stock = in.Stock
			existing.UnitPrice = money.Round(in.Price)
			existing.UpdatedAt = time.Now()
			continue
		}
		f.add(model.Product{
			Key:         in.Key,
			Name:        in.Name,
			Description: in.Description,
			Stock:       in.Stock,
			UnitPrice:   money.Round(in.Price),
			UpdatedAt:   time.Now(),
		})
	}
	return len(order), nil
}

func (f *fakeProductRepo) Search(_ context.Context, q string, limit int) ([]model.Product, error) {
	out := make([]model.Product, 0)
	for _, p := range f.products {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) ||
			strings.Contains(strings.ToLower(p.Description), strings.ToLower(q)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProductRepo) ListAll(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeProductRepo) ListCategories(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, p := range f.products {
		if c := strings.TrimSpace(p.Category); c != "" {
			seen[c] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeProductRepo) FindByKey(_ context.Context, key string) (*model.Product, error) {
	p, ok := f.products[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) KeyExists(_ context.Context, key string) (bool, error) {
	_, ok := f.products[key]
	return ok, nil
}

func (f *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	if _, ok := f.products[p.Key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if f.conflictNext > 0 {
		f.conflictNext--
		f.add(*p)
		return gorm.ErrDuplicatedKey
	}
	f.add(*p)
	p.ID = f.products[p.Key].ID
	return nil
}

func (f *fakeProductRepo) Save(_ context.Context, p *model.Product) error {
	cp := *p
	f.products[p.Key] = &cp
	return nil
}

func (f *fakeProductRepo) Delete(_ context.Context, key string) error {
	if _, ok := f.products[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.products, key)
	delete(f.images, key)
	return nil
}

func (f *fakeProductRepo) CreateStockMoveTx(_ *gorm.DB, m *model.StockMove) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves = append(f.moves, *m)
	return nil
}

func (f *fakeProductRepo) ListStockMoves(_ context.Context, key string, limit int) ([]model.StockMove, error) {
	out := make([]model.StockMove, 0)
	for i := len(f.moves) - 1; i >= 0; i-- {
		if f.moves[i].ProductKey == key {
			out = append(out, f.moves[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindByKeysForUpdateTx(_ *gorm.DB, keys []string) ([]model.Product, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	out := make([]model.Product, 0, len(sorted))
	for _, k := range sorted {
		if p, ok := f.products[k]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) UpdateStockTx(_ *gorm.DB, key string, newStock int) error {
	p, ok := f.products[key]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock = newStock
	return nil
}

func (f *fakeProductRepo) SetImage(_ context.Context, key, path string) error {
	f.images[key] = path
	return nil
}

func (f *fakeProductRepo) GetImage(_ context.Context, key string) (string, error) {
	path, ok := f.images[key]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return path, nil
}

func (f *fakeProductRepo) DeleteImage(_ context.Context, key string) error {
	delete(f.images, key)
	return nil
}

func (f *fakeProductRepo) DB() *gorm.DB { return nil }

// ─── fakeSalesRepo ───────────────────────────────────────────────────────────

type fakeSalesRepo struct {
	sales  []model.Sale
	totals map[string]repository.DayTotals
	nextID int64
}

var _ repository.SalesRepository = (*fakeSalesRepo)(nil)

func newFakeSalesRepo() *fakeSalesRepo {
	return &fakeSalesRepo{totals: make(map[string]repository.DayTotals)}
}

func (f *fakeSalesRepo) CreateSaleTx(_ *gorm.DB, s *model.Sale) error {
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	for i := range s.Lines {
		s.Lines[i].SaleID = s.ID
	}
	f.sales = append(f.sales, *s)
	return nil
}

func (f *fakeSalesRepo) GetSale(_ context.Context, id int64) (*model.Sale, error) {
	for i := range f.sales {
		if f.sales[i].ID == id {
			cp := f.sales[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSalesRepo) TotalsForDay(_ context.Context, day string) (repository.DayTotals, error) {
	return f.totalsFor(day), nil
}

func (f *fakeSalesRepo) TotalsForDayTx(_ *gorm.DB, day string) (repository.DayTotals, error) {
	return f.totalsFor(day), nil
}

func (f *fakeSalesRepo) totalsFor(day string) repository.DayTotals {
	if t, ok := f.totals[day]; ok {
		return t
	}
	return repository.DayTotals{
		Gross: money.Zero(), Cash: money.Zero(), Card: money.Zero(),
		Nequi: money.Zero(), Virtual: money.Zero(),
	}
}

func (f *fakeSalesRepo) ListSummaries(_ context.Context, limit int) ([]repository.SaleSummary, error) {
	out := make([]repository.SaleSummary, 0)
	for i := len(f.sales) - 1; i >= 0 && len(out) < limit; i-- {
		s := f.sales[i]
		out = append(out, repository.SaleSummary{
			ID:            s.ID,
			CreatedAt:     s.CreatedAt.Format("2006-01-02 15:04"),
			Total:         s.Total,
			ItemCount:     len(s.Lines),
			PaymentMethod: s.PaymentMethod,
		})
	}
	return out, nil
}

func (f *fakeSalesRepo) TotalSold(_ context.Context) (decimal.Decimal, error) {
	total := money.Zero()
	for _, s := range f.sales {
		total = total.Add(s.Total)
	}
	return money.Round(total), nil
}

func (f *fakeSalesRepo) TotalSoldByDay(_ context.Context, limitDays int) ([]repository.DaySold, error) {
	byDay := make(map[string]decimal.Decimal)
	for _, s := range f.sales {
		day := s.CreatedAt.Format("2006-01-02")
		byDay[day] = byDay[day].Add(s.Total)
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	out := make([]repository.DaySold, 0)
	for _, d := range days {
		if limitDays > 0 && len(out) == limitDays {
			break
		}
		out = append(out, repository.DaySold{Day: d, Total: money.Round(byDay[d])})
	}
	return out, nil
}

func (f *fakeSalesRepo) TopProducts(_ context.Context, limit int) ([]repository.TopProduct, error) {
	type agg struct {
		name  string
		qty   int
		total decimal.Decimal
	}
	byKey := make(map[string]*agg)
	for _, s := range f.sales {
		for _, l := range s.Lines {
			a, ok := byKey[l.ProductKey]
			if !ok {
				a = &agg{name: l.Name, total: money.Zero()}
				byKey[l.ProductKey] = a
			}
			a.qty += l.Qty
			a.total = a.total.Add(l.LineTotal)
		}
	}
	out := make([]repository.TopProduct, 0, len(byKey))
	for k, a := range byKey {
		out = append(out, repository.TopProduct{ProductKey: k, Name: a.name, Qty: a.qty, Total: money.Round(a.total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSalesRepo) DB() *gorm.DB { return nil }

// ─── fakeCashRepo ────────────────────────────────────────────────────────────

type fakeCashRepo struct {
	days   map[string]*model.CashDay
	moves  map[int64]*model.CashMove
	closes []model.CashClose
	nextID int64

	// onCloseForDay runs at the start of CloseForDayTx. Tests use it to
	// mutate state after a close transaction has already begun.
	onCloseForDay func(day string)
}

var _ repository.CashRepository = (*fakeCashRepo)(nil)

func newFakeCashRepo() *fakeCashRepo {
	return &fakeCashRepo{
		days:  make(map[string]*model.CashDay),
		moves: make(map[int64]*model.CashMove),
	}
}

func (f *fakeCashRepo) EnsureDayTx(_ *gorm.DB, day string) (*model.CashDay, error) {
	if d, ok := f.days[day]; ok {
		cp := *d
		return &cp, nil
	}
	d := &model.CashDay{Day: day, OpeningCash: money.Zero()}
	f.days[day] = d
	cp := *d
	return &cp, nil
}

func (f *fakeCashRepo) SaveDayTx(_ *gorm.DB, d *model.CashDay) error {
	cp := *d
	f.days[d.Day] = &cp
	return nil
}

func (f *fakeCashRepo) PrevCloseBeforeTx(_ *gorm.DB, day string) (*model.CashClose, error) {
	var best *model.CashClose
	for i := range f.closes {
		c := &f.closes[i]
		if c.Day >= day {
			continue
		}
		if best == nil || c.Day > best.Day || (c.Day == best.Day && c.CreatedAt.After(best.CreatedAt)) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f *fakeCashRepo) AnyCloseTx(_ *gorm.DB) (bool, error) {
	return len(f.closes) > 0, nil
}

func (f *fakeCashRepo) CloseForDayTx(_ *gorm.DB, day string) (*model.CashClose, error) {
	if f.onCloseForDay != nil {
		f.onCloseForDay(day)
	}
	for i := range f.closes {
		if f.closes[i].Day == day {
			cp := f.closes[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCashRepo) CreateCloseTx(_ *gorm.DB, c *model.CashClose) error {
	for i := range f.closes {
		if f.closes[i].Day == c.Day {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	f.closes = append(f.closes, *c)
	return nil
}

func (f *fakeCashRepo) CreateMoveTx(_ *gorm.DB, m *model.CashMove) error {
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	cp := *m
	f.moves[m.ID] = &cp
	return nil
}

func (f *fakeCashRepo) GetMoveTx(_ *gorm.DB, id int64) (*model.CashMove, error) {
	m, ok := f.moves[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeCashRepo) DeleteMoveTx(_ *gorm.DB, id int64) error {
	delete(f.moves, id)
	return nil
}

func (f *fakeCashRepo) ListWithdrawalsTx(_ *gorm.DB, day string, limit int) ([]model.CashMove, error) {
	out := make([]model.CashMove, 0)
	for _, m := range f.moves {
		if m.Day == day && m.Kind == model.CashMoveWithdrawal {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCashRepo) SumWithdrawalsTx(_ *gorm.DB, day string) (decimal.Decimal, error) {
	sum := money.Zero()
	for _, m := range f.moves {
		if m.Day == day && m.Kind == model.CashMoveWithdrawal {
			sum = sum.Add(m.Amount)
		}
	}
	return sum, nil
}

func (f *fakeCashRepo) ListCloses(_ context.Context, limit int) ([]model.CashClose, error) {
	out := append([]model.CashClose(nil), f.closes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCashRepo) DB() *gorm.DB { return nil }

// ─── fakeAdminRepo ───────────────────────────────────────────────────────────

type fakeAdminRepo struct{ resets int }

var _ repository.AdminRepository = (*fakeAdminRepo)(nil)

func (f *fakeAdminRepo) Reset(_ context.Context) error {
	f.resets++
	return nil
}
