//go:build linux

package route

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// fetchRoutes asks the kernel (RTM_GETROUTE) which route it would use for ip.
// Variable for mocking in tests.
var fetchRoutes = func(ip netip.Addr) ([]rtnetlink.RouteMessage, error) {
	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return c.Route.Get(&rtnetlink.RouteMessage{
		Family: unix.AF_INET,
		Table:  unix.RT_TABLE_MAIN,
		Attributes: rtnetlink.RouteAttributes{
			Dst: ip.AsSlice(),
		},
	})
}

// interfaceByIndex is a variable for mocking in tests.
var interfaceByIndex = net.InterfaceByIndex

// routeFromMessages converts the kernel's answer into a Route.
func routeFromMessages(ip netip.Addr, msgs []rtnetlink.RouteMessage) (Route, error) {
	switch {
	case len(msgs) == 0:
		return Route{}, fmt.Errorf("no route to %s", ip)
	case len(msgs) > 1:
		// RTM_GETROUTE answers with the single selected route
		return Route{}, fmt.Errorf("multiple routes found for %s", ip)
	}
	attrs := msgs[0].Attributes

	dst, ok := netip.AddrFromSlice(attrs.Dst)
	if !ok || dst.Unmap() != ip {
		return Route{}, fmt.Errorf("route answer for %v does not match %s", attrs.Dst, ip)
	}
	src, ok := netip.AddrFromSlice(attrs.Src)
	if !ok {
		return Route{}, fmt.Errorf("failed to parse source address: %v", attrs.Src)
	}
	// Gateway is absent for directly connected destinations
	gw, _ := netip.AddrFromSlice(attrs.Gateway)

	intf, err := interfaceByIndex(int(attrs.OutIface))
	if err != nil {
		return Route{}, fmt.Errorf("failed to get interface by index %d: %w", attrs.OutIface, err)
	}
	if intf.Flags&net.FlagUp == 0 {
		return Route{}, fmt.Errorf("interface %s is down", intf.Name)
	}

	return Route{
		Destination: ip,
		Gateway:     gw.Unmap(),
		Source:      src.Unmap(),
		Interface:   intf,
	}, nil
}

func get(ip netip.Addr) (Route, error) {
	msgs, err := fetchRoutes(ip)
	if err != nil {
		return Route{}, fmt.Errorf("route lookup for %s: %w", ip, err)
	}
	return routeFromMessages(ip, msgs)
}
