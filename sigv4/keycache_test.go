package sigv4

import (
	"encoding/hex"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"

func TestDeriveKey(t *testing.T) {
	key := deriveKey(testSecret, "20150830", "us-east-1", "iam")
	assert.Equal(t,
		"2c94c0cf5378ada6887f09bb697df8fc0affdb34ba1cdd5bda32b664bd55b73c",
		hex.EncodeToString(key))
}

func TestDerivedKeyCacheMemoizes(t *testing.T) {
	now := time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)
	c := newDerivedKeyCache(func() time.Time { return now })

	first := c.Get(testSecret, "20150830", "us-east-1", "iam")
	second := c.Get(testSecret, "20150830", "us-east-1", "iam")
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, c.derivations)

	// A different scope derives its own key.
	c.Get(testSecret, "20150830", "eu-west-1", "iam")
	assert.EqualValues(t, 2, c.derivations)
}

func TestDerivedKeyCacheEviction(t *testing.T) {
	now := time.Date(2015, 8, 30, 12, 0, 0, 0, time.UTC)
	c := newDerivedKeyCache(func() time.Time { return now })

	c.Get(testSecret, "20150830", "us-east-1", "iam")
	assert.EqualValues(t, 1, c.derivations)

	// The next UTC day the key is still fresh.
	now = now.AddDate(0, 0, 1)
	c.Get(testSecret, "20150830", "us-east-1", "iam")
	assert.EqualValues(t, 1, c.derivations)

	// Two days later the scope date has rolled out of the window: the sweep
	// drops the entry and a fresh request re-derives.
	now = now.AddDate(0, 0, 2)
	c.sweep(now)
	assert.Len(t, c.values.Items(), 0)

	c.Get(testSecret, "20150833", "us-east-1", "iam")
	assert.EqualValues(t, 2, c.derivations)
}

func TestDerivedKeyCacheStaleHit(t *testing.T) {
	now := time.Date(2015, 8, 30, 12, 0, 0, 0, time.UTC)
	c := newDerivedKeyCache(func() time.Time { return now })

	c.Get(testSecret, "20150830", "us-east-1", "iam")

	// Jump within the same swept day boundary checks would miss, then ask
	// again: the hit path must notice staleness on its own.
	now = now.AddDate(0, 0, 3)
	key := c.Get(testSecret, "20150830", "us-east-1", "iam")
	assert.Equal(t, deriveKey(testSecret, "20150830", "us-east-1", "iam"), key)
}

func TestDerivedKeyCacheConcurrent(t *testing.T) {
	now := time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC)
	c := newDerivedKeyCache(func() time.Time { return now })
	want := deriveKey(testSecret, "20150830", "us-east-1", "iam")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, c.Get(testSecret, "20150830", "us-east-1", "iam"))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadUint64(&c.derivations))
}

func TestStale(t *testing.T) {
	now := time.Date(2015, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.False(t, stale("20150830", now))
	assert.False(t, stale("20150829", now))
	assert.True(t, stale("20150828", now))
}
