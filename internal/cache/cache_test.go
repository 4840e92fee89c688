package cache_test

import (
	"testing"

	"github.com/glint-lang/glint/internal/cache"
)

func TestMemCache_SeenRecordRoundTrip(t *testing.T) {
	c := cache.NewMemCache()
	key := cache.Key{Path: "std/strings.glint", Hash: [32]byte{1, 2, 3}}

	seen, err := c.Seen(key)
	if err != nil || seen {
		t.Fatalf("expected unseen key before Record, got seen=%v err=%v", seen, err)
	}

	if err := c.Record(key); err != nil {
		t.Fatalf("Record: %v", err)
	}

	seen, err = c.Seen(key)
	if err != nil || !seen {
		t.Fatalf("expected key to be seen after Record, got seen=%v err=%v", seen, err)
	}
}

func TestMemCache_DistinguishesPathWithinSameHash(t *testing.T) {
	c := cache.NewMemCache()
	hash := [32]byte{9, 9, 9}
	a := cache.Key{Path: "a.glint", Hash: hash}
	b := cache.Key{Path: "b.glint", Hash: hash}

	c.Record(a)

	if seen, _ := c.Seen(b); seen {
		t.Fatal("recording key a must not mark key b (same hash, different path) as seen")
	}
}
