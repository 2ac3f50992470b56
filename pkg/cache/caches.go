package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

func durationFromSeconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// HashKey derives a cache key from content, matching spec.md §4.C's
// "content cache keyed by source hash".
func HashKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Caches bundles the three cache instances spec.md §4.C names: a content
// cache keyed by source hash, a resolver-variable cache, and a URL cache
// with its own TTL (URLs can change; local content hashes can't).
type Caches struct {
	Content  *Group
	Resolver *Group
	URL      *Group
}

// DefaultURLTTL matches the teacher's default decorator cache TTL.
const DefaultURLTTL = 5 * time.Minute

// NewCaches builds the standard cache set. Content and resolver caches
// are hash-keyed and effectively permanent for the life of a run (a
// content hash never goes stale); the URL cache expires so a resolver
// fetching a remote URL repeatedly sees updates within DefaultURLTTL.
func NewCaches() *Caches {
	return &Caches{
		Content:  NewGroupWithCache(NewTTLCache(24*time.Hour, 10000)),
		Resolver: NewGroupWithCache(NewTTLCache(24*time.Hour, 1000)),
		URL:      NewGroupWithCache(NewTTLCache(DefaultURLTTL, 500)),
	}
}
