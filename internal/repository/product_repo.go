package repository

import (
	"context"
	"strings"
	"time"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is the data access contract for the catalog.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory fakes. Methods suffixed Tx run
// inside a caller-owned transaction and must receive the live tx handle.
type ProductRepository interface {
	UpsertMany(ctx context.Context, rows []dto.ImportedProduct) (int, error)
	Search(ctx context.Context, q string, limit int) ([]model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	FindByKey(ctx context.Context, key string) (*model.Product, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, p *model.Product) error
	Save(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, key string) error
	ListStockMoves(ctx context.Context, key string, limit int) ([]model.StockMove, error)

	// Stock-mutation path: lock the referenced rows for the duration of the tx.
	FindByKeysForUpdateTx(tx *gorm.DB, keys []string) ([]model.Product, error)
	UpdateStockTx(tx *gorm.DB, key string, newStock int) error
	CreateStockMoveTx(tx *gorm.DB, m *model.StockMove) error

	SetImage(ctx context.Context, key, path string) error
	GetImage(ctx context.Context, key string) (string, error)
	DeleteImage(ctx context.Context, key string) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

// UpsertMany performs the bulk "insert or update non-category fields" in one
// statement. Input is deduplicated by key (last occurrence wins). Category is
// only written on insert (empty) and preserved on update, so re-running the
// same import converges to the same state.
func (r *productRepo) UpsertMany(ctx context.Context, rows []dto.ImportedProduct) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	dedup := make(map[string]dto.ImportedProduct, len(rows))
	order := make([]string, 0, len(rows))
	for _, p := range rows {
		if _, seen := dedup[p.Key]; !seen {
			order = append(order, p.Key)
		}
		dedup[p.Key] = p
	}

	now := time.Now()
	batch := make([]model.Product, 0, len(order))
	for _, k := range order {
		p := dedup[k]
		stock := p.Stock
		if stock < 0 {
			stock = 0
		}
		batch = append(batch, model.Product{
			Key:         p.Key,
			Name:        p.Name,
			Description: p.Description,
			Stock:       stock,
			UnitPrice:   money.Round(p.Price),
			Category:    "",
			UpdatedAt:   now,
		})
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "stock", "unit_price", "updated_at"}),
	}).Create(&batch).Error
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (r *productRepo) Search(ctx context.Context, q string, limit int) ([]model.Product, error) {
	var products []model.Product
	query := r.db.WithContext(ctx).Model(&model.Product{})
	if qn := strings.TrimSpace(q); qn != "" {
		like := "%" + qn + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) ListCategories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Distinct("TRIM(category)").
		Where("TRIM(category) <> ''").
		Order("TRIM(category) ASC").
		Pluck("TRIM(category)", &cats).Error
	return cats, err
}

func (r *productRepo) FindByKey(ctx context.Context, key string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) KeyExists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Save(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete removes the product and its image row in one transaction.
func (r *productRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("key = ?", key).Delete(&model.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_key = ?", key).Delete(&model.ProductImage{}).Error
	})
}

func (r *productRepo) CreateStockMoveTx(tx *gorm.DB, m *model.StockMove) error {
	return tx.Create(m).Error
}

func (r *productRepo) ListStockMoves(ctx context.Context, key string, limit int) ([]model.StockMove, error) {
	var moves []model.StockMove
	q := r.db.WithContext(ctx).Where("product_key = ?", key).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&moves).Error
	return moves, err
}

// FindByKeysForUpdateTx fetches products with row locks held until the tx
// commits. Keys are locked in sorted order to avoid lock-order deadlocks
// between concurrent checkouts touching overlapping carts.
func (r *productRepo) FindByKeysForUpdateTx(tx *gorm.DB, keys []string) ([]model.Product, error) {
	var products []model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("key IN ?", keys).
		Order("key ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateStockTx(tx *gorm.DB, key string, newStock int) error {
	return tx.Model(&model.Product{}).Where("key = ?", key).
		Updates(map[string]interface{}{"stock": newStock, "updated_at": time.Now()}).Error
}

func (r *productRepo) SetImage(ctx context.Context, key, path string) error {
	img := model.ProductImage{ProductKey: key, Path: path}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"path"}),
	}).Create(&img).Error
}

func (r *productRepo) GetImage(ctx context.Context, key string) (string, error) {
	var img model.ProductImage
	err := r.db.WithContext(ctx).Where("product_key = ?", key).First(&img).Error
	if err != nil {
		return "", err
	}
	return img.Path, nil
}

func (r *productRepo) DeleteImage(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("product_key = ?", key).Delete(&model.ProductImage{}).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
