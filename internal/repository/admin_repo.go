package repository

import (
	"context"
	"time"

	"tiendapos/internal/model"

	"gorm.io/gorm"
)

// AdminRepository covers destructive maintenance operations.
type AdminRepository interface {
	// Reset wipes sales, cash history and stock moves, and zeros product
	// stock. Catalog rows (name/price/category) are retained. One tx.
	Reset(ctx context.Context) error
}

type adminRepo struct{ db *gorm.DB }

func NewAdminRepository(db *gorm.DB) AdminRepository { return &adminRepo{db: db} }

func (r *adminRepo) Reset(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, del := range []interface{}{
			&model.SaleLine{}, &model.Sale{},
			&model.CashMove{}, &model.CashClose{}, &model.CashDay{},
			&model.StockMove{},
		} {
			if err := tx.Where("1 = 1").Delete(del).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.Product{}).Where("1 = 1").
			Updates(map[string]interface{}{"stock": 0, "updated_at": time.Now()}).Error
	})
}
