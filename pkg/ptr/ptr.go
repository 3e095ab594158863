package ptr

import (
	"net"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL bounds how long PTR answers (and failed lookups) are reused.
const DefaultTTL = 10 * time.Minute

// PtrManager handles PTR lookups for reply addresses with caching
type PtrManager struct {
	cache      *ttlcache.Cache[string, string]
	lookupFunc func(ip string) ([]string, error)
	retries    int
	retryDelay time.Duration
}

// NewPtrManager creates a new PtrManager
func NewPtrManager() *PtrManager {
	return newPtrManager(net.LookupAddr, 3, 100*time.Millisecond)
}

func newPtrManager(lookup func(ip string) ([]string, error), retries int, retryDelay time.Duration) *PtrManager {
	return &PtrManager{
		cache:      ttlcache.New(ttlcache.WithTTL[string, string](DefaultTTL)),
		lookupFunc: lookup,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// RequestPTR performs a PTR lookup for the given IP address unless one is
// cached or already in progress.
func (pm *PtrManager) RequestPTR(ip string) {
	// An empty value marks the lookup as in progress so concurrent callers
	// don't repeat it.
	if _, found := pm.cache.GetOrSet(ip, ""); found {
		return
	}
	for attempt := range pm.retries {
		names, err := pm.lookupFunc(ip)
		if err == nil && len(names) > 0 {
			pm.cache.Set(ip, normalizePTR(names[0]), ttlcache.DefaultTTL)
			return
		}
		if attempt < pm.retries-1 {
			time.Sleep(pm.retryDelay)
		}
	}
}

// GetPTR retrieves the cached PTR result for the given IP address
// Returns the PTR and a boolean indicating if it was found
func (pm *PtrManager) GetPTR(ip string) (string, bool) {
	item := pm.cache.Get(ip)
	if item == nil || item.Value() == "" {
		return "", false
	}
	return item.Value(), true
}

// normalizePTR removes the trailing dot of a fully qualified name.
func normalizePTR(name string) string {
	return strings.TrimSuffix(name, ".")
}
