package iface

import (
	"net"
)

// Header sizes of an ICMP Echo datagram without IP options.
const (
	ipv4HeaderLen = 20
	icmpHeaderLen = 8
)

// MaxEchoPayload returns the largest ICMP Echo payload that leaves iface in
// a single IPv4 packet. It reports false when the MTU is unknown.
func MaxEchoPayload(iface *net.Interface) (int, bool) {
	if iface == nil || iface.MTU <= ipv4HeaderLen+icmpHeaderLen {
		return 0, false
	}
	return iface.MTU - ipv4HeaderLen - icmpHeaderLen, true
}

// Fragments reports whether an Echo Request with size payload bytes has to
// be fragmented to leave iface.
func Fragments(iface *net.Interface, size int) bool {
	limit, ok := MaxEchoPayload(iface)
	return ok && size > limit
}
