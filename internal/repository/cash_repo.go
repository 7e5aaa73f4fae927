package repository

import (
	"context"
	"errors"

	"tiendapos/internal/model"
	"tiendapos/internal/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CashRepository is the data access contract of the cash-day state machine.
// Mutating operations run inside the service's transaction and take the live
// tx handle; plain reads take a context.
type CashRepository interface {
	// EnsureDayTx lazily creates the CashDay row for day (one row per date,
	// upserted, never duplicated) and returns it.
	EnsureDayTx(tx *gorm.DB, day string) (*model.CashDay, error)
	SaveDayTx(tx *gorm.DB, d *model.CashDay) error

	// PrevCloseBeforeTx returns the most recent close strictly before day,
	// or nil when none exists.
	PrevCloseBeforeTx(tx *gorm.DB, day string) (*model.CashClose, error)
	AnyCloseTx(tx *gorm.DB) (bool, error)
	CloseForDayTx(tx *gorm.DB, day string) (*model.CashClose, error)
	CreateCloseTx(tx *gorm.DB, c *model.CashClose) error

	CreateMoveTx(tx *gorm.DB, m *model.CashMove) error
	GetMoveTx(tx *gorm.DB, id int64) (*model.CashMove, error)
	DeleteMoveTx(tx *gorm.DB, id int64) error
	ListWithdrawalsTx(tx *gorm.DB, day string, limit int) ([]model.CashMove, error)
	SumWithdrawalsTx(tx *gorm.DB, day string) (decimal.Decimal, error)

	ListCloses(ctx context.Context, limit int) ([]model.CashClose, error)

	DB() *gorm.DB
}

type cashRepo struct{ db *gorm.DB }

func NewCashRepository(db *gorm.DB) CashRepository { return &cashRepo{db: db} }

func (r *cashRepo) EnsureDayTx(tx *gorm.DB, day string) (*model.CashDay, error) {
	row := model.CashDay{Day: day, OpeningCash: money.Zero(), OpeningCashManual: false}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	var out model.CashDay
	if err := tx.Where("day = ?", day).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cashRepo) SaveDayTx(tx *gorm.DB, d *model.CashDay) error {
	return tx.Save(d).Error
}

func (r *cashRepo) PrevCloseBeforeTx(tx *gorm.DB, day string) (*model.CashClose, error) {
	var c model.CashClose
	err := tx.Where("day < ?", day).
		Order("day DESC, created_at DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cashRepo) AnyCloseTx(tx *gorm.DB) (bool, error) {
	var n int64
	err := tx.Model(&model.CashClose{}).Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *cashRepo) CloseForDayTx(tx *gorm.DB, day string) (*model.CashClose, error) {
	var c model.CashClose
	err := tx.Where("day = ?", day).Order("created_at DESC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cashRepo) CreateCloseTx(tx *gorm.DB, c *model.CashClose) error {
	return tx.Create(c).Error
}

func (r *cashRepo) CreateMoveTx(tx *gorm.DB, m *model.CashMove) error {
	return tx.Create(m).Error
}

func (r *cashRepo) GetMoveTx(tx *gorm.DB, id int64) (*model.CashMove, error) {
	var m model.CashMove
	err := tx.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *cashRepo) DeleteMoveTx(tx *gorm.DB, id int64) error {
	return tx.Delete(&model.CashMove{}, id).Error
}

func (r *cashRepo) ListWithdrawalsTx(tx *gorm.DB, day string, limit int) ([]model.CashMove, error) {
	var moves []model.CashMove
	q := tx.Where("day = ? AND kind = ?", day, model.CashMoveWithdrawal).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&moves).Error
	return moves, err
}

func (r *cashRepo) SumWithdrawalsTx(tx *gorm.DB, day string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.Model(&model.CashMove{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("day = ? AND kind = ?", day, model.CashMoveWithdrawal).
		Scan(&total).Error
	return money.Round(total), err
}

func (r *cashRepo) ListCloses(ctx context.Context, limit int) ([]model.CashClose, error) {
	var closes []model.CashClose
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&closes).Error
	return closes, err
}

func (r *cashRepo) DB() *gorm.DB { return r.db }
