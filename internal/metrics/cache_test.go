package metrics

import (
	"testing"
	"time"
)

func TestResultCache(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("hit returns a flagged copy", func(t *testing.T) {
		c := newResultCache(time.Minute, 10)
		key := newCacheKey("cac", day, day.AddDate(0, 0, 30))

		c.put(key, &Result{Status: StatusOK, Message: "fresh"})

		got := c.get(key)
		if got == nil {
			t.Fatal("expected hit")
		}
		if !got.Cached {
			t.Error("expected Cached flag set")
		}

		// Mutating the copy must not leak back into the cache.
		got.Message = "mutated"
		if c.get(key).Message != "fresh" {
			t.Error("cached entry was mutated through the returned copy")
		}
	})

	t.Run("different range is a different key", func(t *testing.T) {
		c := newResultCache(time.Minute, 10)
		c.put(newCacheKey("cac", day, day.AddDate(0, 0, 30)), &Result{Status: StatusOK})

		if c.get(newCacheKey("cac", day, day.AddDate(0, 0, 7))) != nil {
			t.Error("expected miss for a different range")
		}
		if c.get(newCacheKey("ltv", day, day.AddDate(0, 0, 30))) != nil {
			t.Error("expected miss for a different metric")
		}
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		c := newResultCache(time.Minute, 10)
		current := time.Now()
		c.now = func() time.Time { return current }

		key := newCacheKey("cac", day, day.AddDate(0, 0, 30))
		c.put(key, &Result{Status: StatusOK})

		current = current.Add(61 * time.Second)
		if c.get(key) != nil {
			t.Error("expected expired entry to miss")
		}
	})

	t.Run("oldest entry is evicted when full", func(t *testing.T) {
		c := newResultCache(time.Minute, 2)
		current := time.Now()
		c.now = func() time.Time { return current }

		first := newCacheKey("a", day, day)
		c.put(first, &Result{Status: StatusOK})

		current = current.Add(time.Second)
		second := newCacheKey("b", day, day)
		c.put(second, &Result{Status: StatusOK})

		current = current.Add(time.Second)
		c.put(newCacheKey("c", day, day), &Result{Status: StatusOK})

		if c.get(first) != nil {
			t.Error("expected oldest entry evicted")
		}
		if c.get(second) == nil {
			t.Error("expected newer entry retained")
		}
	})
}
