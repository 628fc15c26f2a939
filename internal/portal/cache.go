package portal

import (
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultDetailEntries = 1024
	defaultDetailTTL     = 30 * time.Second
)

// DetailCache keeps raw JSON bodies of single-record GETs for a short time so
// repeated detail lookups skip the network. Writes through Client invalidate
// the affected entry.
type DetailCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// NewDetailCache builds a cache holding up to maxEntries bodies for ttl.
// Non-positive values select defaults.
func NewDetailCache(maxEntries int64, ttl time.Duration) (*DetailCache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultDetailEntries
	}
	if ttl <= 0 {
		ttl = defaultDetailTTL
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &DetailCache{c: c, ttl: ttl}, nil
}

func (d *DetailCache) get(key string) ([]byte, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		d.c.Del(key)
		return nil, false
	}
	return b, true
}

func (d *DetailCache) set(key string, body []byte) {
	if d == nil {
		return
	}
	dup := make([]byte, len(body))
	copy(dup, body)
	if d.c.SetWithTTL(key, dup, 1, d.ttl) {
		d.c.Wait()
	}
}

func (d *DetailCache) invalidate(key string) {
	if d == nil {
		return
	}
	d.c.Del(key)
}

// Close releases the cache.
func (d *DetailCache) Close() error {
	if d == nil {
		return errors.New("detail cache is nil")
	}
	d.c.Close()
	return nil
}
