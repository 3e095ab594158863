//go:build linux

package probe

import (
	"testing"

	"github.com/google/gopacket/layers"
	"golang.org/x/net/bpf"
)

func TestEchoReplyProgram(t *testing.T) {
	const id = 0x4242

	vm, err := bpf.NewVM(echoReplyProgram(id))
	if err != nil {
		t.Fatalf("NewVM() error = %v", err)
	}

	tests := []struct {
		name   string
		data   []byte
		accept bool
	}{
		{"our reply", buildDatagram(t, "192.0.2.1", 58, layers.ICMPv4TypeEchoReply, id, 1, echoPayload(32)), true},
		{"our reply, empty payload", buildDatagram(t, "192.0.2.1", 58, layers.ICMPv4TypeEchoReply, id, 9, nil), true},
		{"other identifier", buildDatagram(t, "192.0.2.1", 58, layers.ICMPv4TypeEchoReply, id+1, 1, nil), false},
		{"own request", buildDatagram(t, "127.0.0.1", 64, layers.ICMPv4TypeEchoRequest, id, 1, nil), false},
		{"unreachable", buildDatagram(t, "192.0.2.254", 64, layers.ICMPv4TypeDestinationUnreachable, id, 1, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := vm.Run(tt.data)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := n > 0; got != tt.accept {
				t.Errorf("Run() accepted = %v (%d bytes), want %v", got, n, tt.accept)
			}
		})
	}
}

func TestEchoReplyProgram_Assembles(t *testing.T) {
	raw, err := bpf.Assemble(echoReplyProgram(1))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(raw) != 7 {
		t.Errorf("program length = %d, want 7", len(raw))
	}
}
