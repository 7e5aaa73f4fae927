package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tiendapos/internal/apierror"
)

// rateEntry tracks request counts per IP within a sliding window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

const purgeInterval = 5 * time.Minute

// RateLimiter returns a sliding-window rate limiter. Each call creates an
// independent limiter with its own counters, so the general API limit and the
// stricter admin limit do not interfere.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	var (
		entries = make(map[string]*rateEntry)
		mu      sync.Mutex
	)

	// Expired IPs are purged periodically so addresses that never return do
	// not accumulate forever.
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			now := time.Now()
			mu.Lock()
			purged := 0
			for ip, entry := range entries {
				entry.mu.Lock()
				if now.After(entry.windowEnd) {
					delete(entries, ip)
					purged++
				}
				entry.mu.Unlock()
			}
			remaining := len(entries)
			mu.Unlock()
			if purged > 0 {
				log.Debug().
					Int("entries_purged", purged).
					Int("entries_remaining", remaining).
					Msg("rate limiter map purged")
			}
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		entry, exists := entries[ip]
		if !exists {
			entry = &rateEntry{}
			entries[ip] = entry
		}
		mu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(window)
		}

		entry.count++
		if entry.count > limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
