package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// keyRetention bounds how long derived key material may sit in the cache: a
// key for scope date D stays usable through the following UTC day.
const keyRetention = 48 * time.Hour

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// deriveKey runs the fixed HMAC chain rooting the signing key in the secret.
func deriveKey(secret, scopeDate, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), scopeDate)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, requestSuffix)
}

type derivedKey struct {
	scopeDate string
	key       []byte
}

// derivedKeyCache memoizes signing keys per (secret fingerprint, scope date,
// region, service). Concurrent misses for the same scope derive at most once
// without serializing unrelated scopes.
type derivedKeyCache struct {
	values *gocache.Cache
	group  singleflight.Group
	now    func() time.Time

	mu       sync.Mutex
	sweptDay string

	derivations uint64
}

func newDerivedKeyCache(now func() time.Time) *derivedKeyCache {
	return &derivedKeyCache{
		values: gocache.New(keyRetention, time.Hour),
		now:    now,
	}
}

func cacheID(secret, scopeDate, region, service string) string {
	fingerprint := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(fingerprint[:]) + "/" + scopeDate + "/" + region + "/" + service
}

func (c *derivedKeyCache) Get(secret, scopeDate, region, service string) []byte {
	now := c.now().UTC()
	c.sweep(now)

	id := cacheID(secret, scopeDate, region, service)
	if v, ok := c.values.Get(id); ok {
		if k := v.(derivedKey); !stale(k.scopeDate, now) {
			keyCacheHits.Inc()
			return k.key
		}
		c.values.Delete(id)
	}

	v, _, _ := c.group.Do(id, func() (interface{}, error) {
		if v, ok := c.values.Get(id); ok {
			return v.(derivedKey).key, nil
		}
		atomic.AddUint64(&c.derivations, 1)
		keyDerivations.Inc()
		k := deriveKey(secret, scopeDate, region, service)
		c.values.Set(id, derivedKey{scopeDate: scopeDate, key: k}, gocache.DefaultExpiration)
		return k, nil
	})
	return v.([]byte)
}

// stale reports whether a scope date fell out of the retention window: the
// current UTC day and the one before it.
func stale(scopeDate string, now time.Time) bool {
	return scopeDate < now.AddDate(0, 0, -1).Format(ShortTimeFormat)
}

// sweep purges keys from rolled-over scope dates, at most once per UTC day.
func (c *derivedKeyCache) sweep(now time.Time) {
	day := now.Format(ShortTimeFormat)
	c.mu.Lock()
	if c.sweptDay == day {
		c.mu.Unlock()
		return
	}
	c.sweptDay = day
	c.mu.Unlock()

	for id, item := range c.values.Items() {
		if k, ok := item.Object.(derivedKey); ok && stale(k.scopeDate, now) {
			c.values.Delete(id)
		}
	}
}
