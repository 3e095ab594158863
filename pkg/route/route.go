package route

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var ErrUnsupported = errors.New("route lookup not supported on this platform")

// Route is the path the kernel would use towards a probe destination: the
// local source address and the outgoing interface.
type Route struct {
	Destination netip.Addr
	Gateway     netip.Addr
	Source      netip.Addr
	Interface   *net.Interface
}

// InterfaceName returns the outgoing interface name or an empty string.
func (r Route) InterfaceName() string {
	if r.Interface == nil {
		return ""
	}
	return r.Interface.Name
}

func (r Route) String() string {
	via := "direct"
	if r.Gateway.IsValid() {
		via = "via " + r.Gateway.String()
	}
	return fmt.Sprintf("%s from %s dev %s %s", r.Destination, r.Source, r.InterfaceName(), via)
}

// Get returns the route the kernel selects for an IPv4 destination.
func Get(ip netip.Addr) (Route, error) {
	if !ip.Unmap().Is4() {
		return Route{}, fmt.Errorf("route lookup for %s: only IPv4 is supported", ip)
	}
	return get(ip.Unmap())
}
