package util

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

// GeoLocator resolves client IPs to a city and country using a local
// GeoIP2/GeoLite2 database, with results cached in memory.
type GeoLocator struct {
	reader *geoip2.Reader
	cache  *cache.Cache
	hits   int64
	misses int64
}

// OpenGeoLocator opens the .mmdb file at dbPath. An empty path yields a nil
// locator, which answers every lookup with empty strings.
func OpenGeoLocator(dbPath string) (*GeoLocator, error) {
	if dbPath == "" {
		return nil, nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return NewGeoLocator(r), nil
}

// NewGeoLocator wraps an open reader. A nil reader caches nothing and
// resolves every address to empty strings.
func NewGeoLocator(r *geoip2.Reader) *GeoLocator {
	// Cache entries for 24h, purge every hour
	return &GeoLocator{reader: r, cache: cache.New(24*time.Hour, time.Hour)}
}

// Close closes the GeoIP DB if opened.
func (g *GeoLocator) Close() {
	if g == nil || g.reader == nil {
		return
	}
	_ = g.reader.Close()
	g.reader = nil
}

// Lookup returns city and country name for ip. Private and loopback
// addresses are skipped.
func (g *GeoLocator) Lookup(ip string) (string, string) {
	if g == nil || ip == "" {
		return "", ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return "", ""
	}

	if v, ok := g.cache.Get(ip); ok {
		atomic.AddInt64(&g.hits, 1)
		if arr, ok := v.([2]string); ok {
			return arr[0], arr[1]
		}
	}
	atomic.AddInt64(&g.misses, 1)

	if g.reader == nil {
		return "", ""
	}
	rec, err := g.reader.City(parsed)
	if err != nil {
		return "", ""
	}

	city := rec.City.Names["en"]
	country := rec.Country.Names["en"]
	if country == "" {
		country = rec.Country.IsoCode
	}
	g.cache.Set(ip, [2]string{city, country}, cache.DefaultExpiration)
	return city, country
}

// CacheMetrics returns the cache hits and misses and current cache size.
func (g *GeoLocator) CacheMetrics() (hits int64, misses int64, size int) {
	if g == nil {
		return 0, 0, 0
	}
	return atomic.LoadInt64(&g.hits), atomic.LoadInt64(&g.misses), g.cache.ItemCount()
}
