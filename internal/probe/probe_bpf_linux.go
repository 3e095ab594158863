//go:build linux

package probe

import (
	"fmt"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// echoReplyProgram accepts only ICMP Echo Replies carrying identifier id.
// Raw ICMP sockets deliver every ICMP packet the host receives, so without it
// each unrelated message wakes the probe.
func echoReplyProgram(id uint16) []bpf.Instruction {
	return []bpf.Instruction{
		// X = IPv4 header length
		bpf.LoadMemShift{Off: 0},
		// ICMP type
		bpf.LoadIndirect{Off: 0, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: 0, SkipTrue: 3},
		// ICMP identifier
		bpf.LoadIndirect{Off: 4, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(id), SkipTrue: 1},
		bpf.RetConstant{Val: receiveBufferSize},
		bpf.RetConstant{Val: 0},
	}
}

func attachEchoReplyFilter(fd int, id uint16) error {
	raw, err := bpf.Assemble(echoReplyProgram(id))
	if err != nil {
		return fmt.Errorf("assembling filter: %w", err)
	}
	prog := unix.SockFprog{
		Len:    uint16(len(raw)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&raw[0])),
	}
	return unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog)
}
