package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is how long a resolved address is reused before the name is
// looked up again.
const DefaultTTL = 30 * time.Second

var ErrNoAddress = errors.New("no IPv4 address found")

// Resolver turns a destination (IPv4 literal or hostname) into an IPv4
// address. Hostname results are cached so that probing once per interval does
// not issue a DNS query per probe.
type Resolver struct {
	cache      *ttlcache.Cache[string, netip.Addr]
	lookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)
}

// NewResolver creates a Resolver caching results for ttl.
func NewResolver(ttl time.Duration) *Resolver {
	return &Resolver{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, netip.Addr](ttl),
			ttlcache.WithDisableTouchOnHit[string, netip.Addr](),
		),
		lookupFunc: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
		},
	}
}

// Lookup returns the IPv4 address for destination.
func (r *Resolver) Lookup(ctx context.Context, destination string) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(destination); err == nil {
		ip = ip.Unmap()
		if !ip.Is4() {
			return netip.Addr{}, fmt.Errorf("%w: %s is not an IPv4 address", ErrNoAddress, destination)
		}
		return ip, nil
	}

	if item := r.cache.Get(destination); item != nil {
		return item.Value(), nil
	}

	records, err := r.lookupFunc(ctx, destination)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolving %s: %w", destination, err)
	}
	for _, record := range records {
		if ip := record.Unmap(); ip.Is4() {
			r.cache.Set(destination, ip, ttlcache.DefaultTTL)
			return ip, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w for %s", ErrNoAddress, destination)
}
