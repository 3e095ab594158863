//go:build !linux

package route

import "net/netip"

func get(ip netip.Addr) (Route, error) {
	return Route{}, ErrUnsupported
}
