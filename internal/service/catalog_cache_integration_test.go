package service

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiendapos/internal/dto"
	"tiendapos/internal/infra"
	"tiendapos/internal/model"
)

// Gated on TEST_REDIS_URL, e.g. redis://localhost:6379/1.
func testRedisCatalog(t *testing.T) (*fakeProductRepo, CatalogService) {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	repo := newFakeProductRepo()
	return repo, NewCatalogService(repo, rdb)
}

func TestIntegrationBulkImportSweepsWholePriceCache(t *testing.T) {
	repo, svc := testRedisCatalog(t)
	ctx := context.Background()

	repo.add(model.Product{Key: "Pan", Name: "Pan", UnitPrice: dec("800")})
	repo.add(model.Product{Key: "Coca", Name: "Coca", UnitPrice: dec("2500")})

	// warm the cache for both products
	for _, key := range []string{"Pan", "Coca"} {
		_, err := svc.GetPrice(ctx, key)
		require.NoError(t, err)
	}

	_, err := svc.UpsertMany(ctx, []dto.ImportedProduct{
		{Key: "Pan", Name: "Pan", Stock: 1, Price: dec("850")},
		{Key: "Coca", Name: "Coca", Stock: 1, Price: dec("2600")},
	})
	require.NoError(t, err)

	// every cached entry was dropped, so fresh prices are served
	for key, want := range map[string]string{"Pan": "850.00", "Coca": "2600.00"} {
		resp, err := svc.GetPrice(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Price.StringFixed(2))
	}
}
