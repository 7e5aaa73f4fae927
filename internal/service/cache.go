package service

import "time"

const (
	priceCachePrefix = "precio:"
	priceCacheTTL    = 5 * time.Minute
)

func priceCacheKey(productKey string) string {
	return priceCachePrefix + productKey
}
