package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/infra"
	"tiendapos/internal/model"
	"tiendapos/internal/repository"
)

// Concurrency tests against a real postgres, exercising the row locks the
// in-memory fakes cannot. Skipped unless TEST_DATABASE_URL is set.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		for _, table := range []string{
			"sale_lines", "sales", "stock_moves", "product_images",
			"cash_moves", "cash_closes", "cash_days", "products",
		} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func TestIntegrationConcurrentCheckoutsLastUnit(t *testing.T) {
	db := testDB(t)
	products := repository.NewProductRepository(db)
	sales := repository.NewSalesRepository(db)
	svc := NewCheckoutService(products, sales, nil)
	ctx := context.Background()

	key := fmt.Sprintf("ultimo-%d", time.Now().UnixNano())
	_, err := products.UpsertMany(ctx, []dto.ImportedProduct{
		{Key: key, Name: "Último", Stock: 1, Price: decimal.RequireFromString("1000")},
	})
	require.NoError(t, err)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, dto.CheckoutRequest{
				Lines: []dto.CartLine{{Key: key, Qty: 1}},
			})
		}(i)
	}
	wg.Wait()

	// exactly one buyer gets the unit, the rest are told there is no stock
	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, IsKind(err, KindConflict))
	}
	assert.Equal(t, 1, won)

	p, err := products.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	var saleCount int64
	require.NoError(t, db.Table("sale_lines").Where("product_key = ?", key).Count(&saleCount).Error)
	assert.EqualValues(t, 1, saleCount)
}

func TestIntegrationConcurrentRestocksKeepAllDeltas(t *testing.T) {
	db := testDB(t)
	products := repository.NewProductRepository(db)
	svc := NewCatalogService(products, nil)
	ctx := context.Background()

	key := fmt.Sprintf("pan-%d", time.Now().UnixNano())
	_, err := products.UpsertMany(ctx, []dto.ImportedProduct{
		{Key: key, Name: "Pan", Stock: 0, Price: decimal.RequireFromString("800")},
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustStock(ctx, key, 1, model.StockMoveRestock, "reposición")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// no lost updates: every increment lands and every move is audited
	p, err := products.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, workers, p.Stock)

	moves, err := products.ListStockMoves(ctx, key, 0)
	require.NoError(t, err)
	assert.Len(t, moves, workers)
}
