package probe

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var errNotEcho = errors.New("not an ICMP echo message")

// echoReply is what we need from a received IPv4+ICMP datagram.
type echoReply struct {
	source  netip.Addr
	ttl     uint8
	icmp    layers.ICMPv4TypeCode
	id      uint16
	seq     uint16
	payload int
}

// decodeEchoReply parses a datagram as read from a raw IPv4 ICMP socket, i.e.
// starting with the IPv4 header.
func decodeEchoReply(data []byte) (echoReply, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	ip4, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return echoReply{}, fmt.Errorf("decoding IPv4 header: %w", errLayer.Error())
		}
		return echoReply{}, errors.New("decoding IPv4 header: no IPv4 layer")
	}
	if ip4.Protocol != layers.IPProtocolICMPv4 {
		return echoReply{}, fmt.Errorf("%w: protocol %v", errNotEcho, ip4.Protocol)
	}

	icmp, ok := packet.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	if !ok {
		return echoReply{}, fmt.Errorf("%w: truncated ICMP header", errNotEcho)
	}

	source, ok := netip.AddrFromSlice(ip4.SrcIP)
	if !ok {
		return echoReply{}, fmt.Errorf("decoding IPv4 header: invalid source %v", ip4.SrcIP)
	}

	return echoReply{
		source:  source.Unmap(),
		ttl:     ip4.TTL,
		icmp:    icmp.TypeCode,
		id:      icmp.Id,
		seq:     icmp.Seq,
		payload: len(icmp.Payload),
	}, nil
}

// answers reports whether r is the Echo Reply to the request (id, seq). Our
// own Echo Request looped back on the same host carries the same identifier,
// so the type has to be checked too.
func (r echoReply) answers(id, seq uint16) bool {
	return r.icmp.Type() == layers.ICMPv4TypeEchoReply && r.id == id && r.seq == seq
}
