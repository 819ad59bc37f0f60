package geocode

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/reelfeed/engine/internal/models"
)

// Geocoder is the resolution interface the cache wraps.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (models.Geotag, error)
	Forward(ctx context.Context, address string) ([]models.Geotag, error)
}

type reverseEntry struct {
	tag     models.Geotag
	expires time.Time
}

type forwardEntry struct {
	tags    []models.Geotag
	expires time.Time
}

// CachingGeocoder wraps another Geocoder with a TTL-based in-memory cache.
// Reverse lookups key on coordinates rounded to ~10m so repeated requests
// from the same spot hit the cache.
type CachingGeocoder struct {
	base Geocoder
	ttl  time.Duration

	mu       sync.RWMutex
	reverses map[string]reverseEntry
	forwards map[string]forwardEntry
}

// NewCachingGeocoder returns a Geocoder that caches lookups for the provided TTL.
func NewCachingGeocoder(base Geocoder, ttl time.Duration) *CachingGeocoder {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingGeocoder{
		base:     base,
		ttl:      ttl,
		reverses: make(map[string]reverseEntry),
		forwards: make(map[string]forwardEntry),
	}
}

func reverseKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}

// Reverse returns a cached address when available, otherwise it delegates and
// stores the result.
func (c *CachingGeocoder) Reverse(ctx context.Context, lat, lon float64) (models.Geotag, error) {
	key := reverseKey(lat, lon)
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.reverses[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.tag, nil
	}

	tag, err := c.base.Reverse(ctx, lat, lon)
	if err != nil {
		return models.Geotag{}, err
	}

	c.mu.Lock()
	c.reverses[key] = reverseEntry{tag: tag, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return tag, nil
}

// Forward returns cached candidates when available, otherwise it delegates
// and stores the result. Empty result sets are cached too: a query that
// matched nothing a moment ago will match nothing now.
func (c *CachingGeocoder) Forward(ctx context.Context, address string) ([]models.Geotag, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.forwards[address]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return append([]models.Geotag(nil), entry.tags...), nil
	}

	tags, err := c.base.Forward(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("forward geocode: %w", err)
	}

	c.mu.Lock()
	c.forwards[address] = forwardEntry{tags: tags, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return tags, nil
}
