package probe

import (
	"context"
	"errors"
	"net/netip"
	"time"
)

var (
	// ErrPermissionDenied is returned when the platform refuses to create a
	// raw ICMP socket. Running as root or with CAP_NET_RAW fixes it.
	ErrPermissionDenied = errors.New("permission denied opening raw ICMP socket (run as root or grant CAP_NET_RAW)")
	ErrUnsupported      = errors.New("raw ICMP sockets are not supported on this platform")
)

// receiveBufferSize fits any IPv4 datagram.
const receiveBufferSize = 65536

// Conn is a raw IPv4 ICMP endpoint owned by a single probe.
type Conn interface {
	// WriteTo sends one ICMP message to dst.
	WriteTo(b []byte, dst netip.Addr) error
	// Wait blocks until a datagram can be read, timeout elapses or ctx is
	// done. It reports whether the connection is readable.
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
	// ReadFrom reads one datagram, starting with its IPv4 header, without
	// blocking. It returns 0 when nothing is queued.
	ReadFrom(b []byte) (int, error)
	Close() error
}

// openFunc opens a Conn for the engine identified by id.
type openFunc func(id uint16) (Conn, error)
