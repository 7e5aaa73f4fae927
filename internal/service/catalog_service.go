package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/money"
	"tiendapos/internal/repository"
)

const (
	searchDefaultLimit = 120
	searchMaxLimit     = 500
	productKeyMaxLen   = 160
	createKeyAttempts  = 3
)

// CatalogService manages the product catalog: bulk import, search,
// stock and price maintenance, categories, images and duplicate cleanup.
type CatalogService interface {
	UpsertMany(ctx context.Context, items []dto.ImportedProduct) (*dto.UpsertManyResponse, error)
	Search(ctx context.Context, query string, limit int) ([]dto.ProductResponse, error)
	ListCategories(ctx context.Context) ([]string, error)
	SetCategory(ctx context.Context, key, category string) (bool, error)
	SetInfo(ctx context.Context, key string, req dto.SetInfoRequest) (*dto.ProductResponse, error)
	CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, key string) error
	AdjustStock(ctx context.Context, key string, delta int, kind, notes string) (*dto.StockResponse, error)
	SetStock(ctx context.Context, key string, stock int, notes string) (*dto.StockResponse, error)
	SetPrice(ctx context.Context, key string, price decimal.Decimal) (*dto.PriceResponse, error)
	GetPrice(ctx context.Context, key string) (*dto.PriceResponse, error)
	ListStockMoves(ctx context.Context, key string, limit int) ([]model.StockMove, error)
	FindDuplicates(ctx context.Context) ([]dto.DuplicateGroup, error)
	DeleteDuplicates(ctx context.Context, keepFirst bool) (*dto.DeleteDuplicatesResponse, error)
	SetImage(ctx context.Context, key, path string) error
	GetImage(ctx context.Context, key string) (*dto.ImageResponse, error)
	ClearImage(ctx context.Context, key string) error
}

type catalogService struct {
	products repository.ProductRepository
	rdb      *redis.Client
}

func NewCatalogService(products repository.ProductRepository, rdb *redis.Client) CatalogService {
	return &catalogService{products: products, rdb: rdb}
}

func (s *catalogService) UpsertMany(ctx context.Context, items []dto.ImportedProduct) (*dto.UpsertManyResponse, error) {
	rows := make([]dto.ImportedProduct, 0, len(items))
	skipped := 0
	for _, it := range items {
		key := strings.TrimSpace(it.Key)
		name := strings.TrimSpace(it.Name)
		if key == "" || name == "" {
			skipped++
			continue
		}
		if it.Price.IsNegative() || it.Stock < 0 {
			skipped++
			continue
		}
		rows = append(rows, dto.ImportedProduct{
			Key:         key,
			Name:        name,
			Description: strings.TrimSpace(it.Description),
			Stock:       it.Stock,
			Price:       money.Round(it.Price),
		})
	}
	upserted, err := s.products.UpsertMany(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.invalidatePrices(ctx)
	return &dto.UpsertManyResponse{Upserted: upserted, Skipped: skipped}, nil
}

func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]dto.ProductResponse, error) {
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}
	products, err := s.products.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]string, error) {
	return s.products.ListCategories(ctx)
}

// SetCategory is tolerant: a blank key or a missing product is reported
// as not applied rather than as an error, so bulk tagging can keep going.
func (s *catalogService) SetCategory(ctx context.Context, key, category string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}
	p, err := s.products.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	p.Category = strings.TrimSpace(category)
	if err := s.products.Save(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

func (s *catalogService) SetInfo(ctx context.Context, key string, req dto.SetInfoRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, newErr(KindValidation, "el nombre no puede estar vacío")
	}
	p, err := s.findProduct(ctx, key)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Description = strings.TrimSpace(req.Description)
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, newErr(KindValidation, "el nombre no puede estar vacío")
	}
	if req.Price.IsNegative() {
		return nil, newErr(KindValidation, "el precio no puede ser negativo")
	}
	if req.Stock < 0 {
		return nil, newErr(KindValidation, "el stock no puede ser negativo")
	}
	// A concurrent create can claim the generated key between the existence
	// check and the insert. On a duplicate-key error the key is derived again
	// against the fresh state instead of leaking the raw constraint error.
	for attempt := 0; attempt < createKeyAttempts; attempt++ {
		key, err := s.generateKey(ctx, name, strings.TrimSpace(req.Description))
		if err != nil {
			return nil, err
		}
		p := &model.Product{
			Key:         key,
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Stock:       req.Stock,
			UnitPrice:   money.Round(req.Price),
			Category:    strings.TrimSpace(req.Category),
		}
		err = s.products.Create(ctx, p)
		if err == nil {
			resp := toProductResponse(p)
			return &resp, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, newErr(KindConflict, "no se pudo generar una clave libre para %q", name)
}

// generateKey derives a stable key from name and description, bounded in
// length, and appends " - N" until the key is free. Diacritics are folded so
// "Limón" and "Limon" produce the same key.
func (s *catalogService) generateKey(ctx context.Context, name, description string) (string, error) {
	base := name
	if description != "" {
		base = name + " - " + description
	}
	base = foldAccents(base)
	base = strings.Join(strings.Fields(base), " ")
	if len(base) > productKeyMaxLen {
		// Cut on a rune boundary so a multi-byte character straddling the
		// limit is dropped whole instead of leaving invalid UTF-8.
		cut := productKeyMaxLen
		for cut > 0 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = strings.TrimSpace(base[:cut])
	}
	candidate := base
	for n := 2; ; n++ {
		exists, err := s.products.KeyExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s - %d", base, n)
	}
}

func (s *catalogService) DeleteProduct(ctx context.Context, key string) error {
	if err := s.products.Delete(ctx, strings.TrimSpace(key)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newErr(KindNotFound, "producto no encontrado: %s", key)
		}
		return err
	}
	s.invalidatePrice(ctx, key)
	return nil
}

func (s *catalogService) AdjustStock(ctx context.Context, key string, delta int, kind, notes string) (*dto.StockResponse, error) {
	if kind != model.StockMoveRestock && kind != model.StockMoveAdjust {
		kind = model.StockMoveAdjust
	}
	return s.mutateStock(ctx, key, kind, notes, func(current int) int {
		newStock := current + delta
		if newStock < 0 {
			newStock = 0
		}
		return newStock
	})
}

func (s *catalogService) SetStock(ctx context.Context, key string, stock int, notes string) (*dto.StockResponse, error) {
	if stock < 0 {
		stock = 0
	}
	return s.mutateStock(ctx, key, model.StockMoveAdjust, notes, func(int) int { return stock })
}

// mutateStock applies a stock change under a row lock so concurrent
// adjustments and checkouts never lose each other's writes. The audit move is
// part of the same transaction: if it cannot be recorded the change does not
// happen either.
func (s *catalogService) mutateStock(ctx context.Context, key, kind, notes string, next func(current int) int) (*dto.StockResponse, error) {
	key = strings.TrimSpace(key)
	var resp dto.StockResponse
	txErr := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		locked, err := s.products.FindByKeysForUpdateTx(tx, []string{key})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return newErr(KindNotFound, "producto no encontrado: %s", key)
		}
		p := &locked[0]
		newStock := next(p.Stock)
		applied := newStock - p.Stock
		if applied != 0 {
			move := &model.StockMove{
				ProductKey: p.Key,
				Kind:       kind,
				Delta:      applied,
				StockAfter: newStock,
				Notes:      notes,
			}
			if err := s.products.CreateStockMoveTx(tx, move); err != nil {
				return err
			}
			if err := s.products.UpdateStockTx(tx, p.Key, newStock); err != nil {
				return err
			}
		}
		resp = dto.StockResponse{Key: p.Key, Stock: newStock, Applied: applied}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &resp, nil
}

func (s *catalogService) SetPrice(ctx context.Context, key string, price decimal.Decimal) (*dto.PriceResponse, error) {
	if price.IsNegative() {
		return nil, newErr(KindValidation, "el precio no puede ser negativo")
	}
	p, err := s.findProduct(ctx, key)
	if err != nil {
		return nil, err
	}
	p.UnitPrice = money.Round(price)
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	s.invalidatePrice(ctx, p.Key)
	return &dto.PriceResponse{Key: p.Key, Price: p.UnitPrice}, nil
}

// GetPrice serves price checks through a short lived cache so scanner guns
// hammering the endpoint do not hit the database per scan.
func (s *catalogService) GetPrice(ctx context.Context, key string) (*dto.PriceResponse, error) {
	key = strings.TrimSpace(key)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, priceCacheKey(key)).Result(); err == nil {
			if price, perr := decimal.NewFromString(cached); perr == nil {
				return &dto.PriceResponse{Key: key, Price: price}, nil
			}
		}
	}
	p, err := s.findProduct(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, priceCacheKey(key), p.UnitPrice.String(), priceCacheTTL).Err(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("no se pudo cachear el precio")
		}
	}
	return &dto.PriceResponse{Key: p.Key, Price: p.UnitPrice}, nil
}

func (s *catalogService) ListStockMoves(ctx context.Context, key string, limit int) ([]model.StockMove, error) {
	if limit <= 0 || limit > searchMaxLimit {
		limit = searchDefaultLimit
	}
	return s.products.ListStockMoves(ctx, strings.TrimSpace(key), limit)
}

// FindDuplicates groups products whose name and description coincide after
// trimming. Groups are returned with their keys sorted so callers can decide
// deterministically which entry survives.
func (s *catalogService) FindDuplicates(ctx context.Context) ([]dto.DuplicateGroup, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	labels := make(map[string]string)
	for i := range products {
		p := &products[i]
		norm := strings.ToLower(strings.TrimSpace(p.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(p.Description))
		groups[norm] = append(groups[norm], p.Key)
		if _, ok := labels[norm]; !ok {
			label := strings.TrimSpace(p.Name)
			if d := strings.TrimSpace(p.Description); d != "" {
				label += " " + d
			}
			labels[norm] = label
		}
	}
	out := make([]dto.DuplicateGroup, 0)
	for norm, keys := range groups {
		if len(keys) < 2 {
			continue
		}
		sort.Strings(keys)
		out = append(out, dto.DuplicateGroup{BaseName: labels[norm], Keys: keys})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BaseName < out[j].BaseName })
	return out, nil
}

// DeleteDuplicates removes every duplicate except one per group. A failed
// deletion is logged and skipped so one stubborn row does not abort the sweep.
func (s *catalogService) DeleteDuplicates(ctx context.Context, keepFirst bool) (*dto.DeleteDuplicatesResponse, error) {
	groups, err := s.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	deleted := 0
	for _, g := range groups {
		keys := g.Keys
		var victims []string
		if keepFirst {
			victims = keys[1:]
		} else {
			victims = keys[:len(keys)-1]
		}
		for _, key := range victims {
			if err := s.products.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("no se pudo borrar el duplicado")
				continue
			}
			s.invalidatePrice(ctx, key)
			deleted++
		}
	}
	return &dto.DeleteDuplicatesResponse{Groups: len(groups), Deleted: deleted}, nil
}

func (s *catalogService) SetImage(ctx context.Context, key, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return newErr(KindValidation, "la ruta de la imagen no puede estar vacía")
	}
	if _, err := s.findProduct(ctx, key); err != nil {
		return err
	}
	return s.products.SetImage(ctx, strings.TrimSpace(key), path)
}

func (s *catalogService) GetImage(ctx context.Context, key string) (*dto.ImageResponse, error) {
	key = strings.TrimSpace(key)
	path, err := s.products.GetImage(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newErr(KindNotFound, "el producto no tiene imagen: %s", key)
		}
		return nil, err
	}
	return &dto.ImageResponse{Key: key, Path: path}, nil
}

func (s *catalogService) ClearImage(ctx context.Context, key string) error {
	return s.products.DeleteImage(ctx, strings.TrimSpace(key))
}

func (s *catalogService) findProduct(ctx context.Context, key string) (*model.Product, error) {
	key = strings.TrimSpace(key)
	p, err := s.products.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newErr(KindNotFound, "producto no encontrado: %s", key)
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) invalidatePrice(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, priceCacheKey(key)).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("no se pudo invalidar el precio cacheado")
	}
}

// invalidatePrices drops the whole price cache after a bulk import.
func (s *catalogService) invalidatePrices(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	iter := s.rdb.Scan(ctx, 0, priceCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		// One failed delete must not leave the rest of the cache stale.
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Debug().Err(err).Str("cache_key", iter.Val()).Msg("no se pudo invalidar el precio cacheado")
		}
	}
	if err := iter.Err(); err != nil {
		log.Debug().Err(err).Msg("no se pudo recorrer el caché de precios")
	}
}

// foldAccents strips combining marks: NFD decomposition, drop the marks,
// recompose. Non-letter characters pass through untouched.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		Key:         p.Key,
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		Price:       p.UnitPrice,
		Category:    p.Category,
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
