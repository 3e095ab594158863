package probe

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Size of the ICMP Echo header: type, code, checksum, identifier, sequence.
const icmpHeaderLen = 8

// payloadPatternStart is the first byte of every echo payload.
const payloadPatternStart = 0x42

// Checksum computes the Internet checksum (RFC 1071) of b. Odd-length input
// is padded with a trailing zero byte.
func Checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// echoPayload returns size bytes counting up from 0x42, wrapping at 256.
func echoPayload(size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(payloadPatternStart + i)
	}
	return payload
}

// encodeEchoRequest builds an ICMP Echo Request with a payload of size bytes.
// The checksum is computed over the packet with a zeroed checksum field and
// then written in place.
func encodeEchoRequest(id, seq uint16, size int) ([]byte, error) {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       id,
		Seq:      seq,
	}
	payload := gopacket.Payload(echoPayload(size))

	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, icmp, payload); err != nil {
		return nil, fmt.Errorf("encoding echo request: %w", err)
	}

	icmp.Checksum = Checksum(buf.Bytes())
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, icmp, payload); err != nil {
		return nil, fmt.Errorf("encoding echo request: %w", err)
	}
	return buf.Bytes(), nil
}
